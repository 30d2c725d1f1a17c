package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// getExportAsFile 获取符号大小导出文件 (CSV 或 JSON)。
// - 如果输入不包含 "://", 则视为本地文件路径（相对或绝对）。
// - 如果是 file:// URI，直接使用其路径。
// - 如果是 http:// 或 https:// URI，下载到临时文件并返回其路径。
// 返回最终的文件路径、一个用于清理临时文件的函数（如果创建了临时文件）以及错误。
func getExportAsFile(uriStr string) (filePath string, cleanup func(), err error) {
	cleanup = func() {} // 默认清理函数为空操作

	// 检查输入是否包含协议头，如果没有，则假定为本地文件路径
	if !strings.Contains(uriStr, "://") {
		log.Printf("Input '%s' does not contain '://', treating as local file path.", uriStr)
		absPath, err := filepath.Abs(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to get absolute path for '%s': %w", uriStr, err)
		}
		log.Printf("Using absolute local path: %s", absPath)
		return absPath, cleanup, nil
	}

	// 如果包含 "://", 则按 URI 处理
	parsedURI, err := url.Parse(uriStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid export URI '%s': %w", uriStr, err)
	}

	switch parsedURI.Scheme {
	case "file":
		filePath = parsedURI.Path
		if filePath == "" {
			return "", nil, fmt.Errorf("invalid file path derived from URI '%s'", uriStr)
		}
		log.Printf("Using local export file: %s", filePath)
		return filePath, cleanup, nil

	case "http", "https":
		log.Printf("Attempting to download export from URL: %s", uriStr)
		resp, err := http.Get(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to download export from '%s': %w", uriStr, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", nil, fmt.Errorf("failed to download export from '%s': received status code %d", uriStr, resp.StatusCode)
		}

		// 保留扩展名，后续根据扩展名选择 CSV 或 JSON 解码
		tempFile, err := os.CreateTemp("", "bloat-*"+filepath.Ext(parsedURI.Path))
		if err != nil {
			return "", nil, fmt.Errorf("failed to create temporary file for download: %w", err)
		}
		filePath = tempFile.Name()
		log.Printf("Downloading export to temporary file: %s", filePath)

		// 定义清理函数，用于删除临时文件
		cleanup = func() { removeTempFile(filePath) }

		_, err = io.Copy(tempFile, resp.Body)
		closeErr := tempFile.Close()

		if err != nil {
			cleanup() // 如果复制失败，尝试清理临时文件
			return "", nil, fmt.Errorf("failed to write downloaded content to temporary file '%s': %w", filePath, err)
		}
		if closeErr != nil {
			log.Printf("Warning: failed to close temporary file handle for '%s': %v", filePath, closeErr)
		}

		log.Printf("Successfully downloaded export to %s", filePath)
		return filePath, cleanup, nil

	default:
		return "", nil, fmt.Errorf("unsupported URI scheme '%s', only 'file://', 'http://', 'https://', or a plain local path are supported", parsedURI.Scheme)
	}
}

// loadTreeFromURI 获取导出文件并构建符号层级树。
func loadTreeFromURI(uriStr string) (*symtree.Tree, error) {
	filePath, cleanup, err := getExportAsFile(uriStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get export file: %w", err)
	}
	defer cleanup() // 树构建完成后即可删除临时文件

	tree, err := analyzer.LoadTreeFile(filePath, appConfig.BuildOptions())
	if err != nil {
		log.Printf("Error loading export file '%s': %v", filePath, err)
		return nil, err
	}
	return tree, nil
}

// writeProfileTemp 将层级树导出为 pprof 格式的临时文件，供 'go tool pprof' 使用。
func writeProfileTemp(tree *symtree.Tree) (filePath string, cleanup func(), err error) {
	tempFile, err := os.CreateTemp("", "bloat-*.pb.gz")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary profile file: %w", err)
	}
	filePath = tempFile.Name()
	cleanup = func() { removeTempFile(filePath) }

	writeErr := analyzer.WriteProfile(tree, tempFile)
	closeErr := tempFile.Close()
	if writeErr != nil {
		cleanup()
		return "", nil, writeErr
	}
	if closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close temporary profile file '%s': %w", filePath, closeErr)
	}
	log.Printf("Wrote pprof export to temporary file: %s", filePath)
	return filePath, cleanup, nil
}

func removeTempFile(filePath string) {
	log.Printf("Cleaning up temporary file: %s", filePath)
	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) { // 忽略文件不存在的错误
		log.Printf("Warning: failed to remove temporary file '%s': %v", filePath, err)
	}
}
