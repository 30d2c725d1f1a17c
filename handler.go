package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/config"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// analysisRequest 是 analyze_bloat 工具参数与配置默认值合并后的结果。
type analysisRequest struct {
	URI          string
	TopN         int
	OutputFormat string
	Filter       symtree.FilterState
}

// parseAnalysisArgs 从工具参数中读取分析选项，未提供的参数使用配置中的默认值。
func parseAnalysisArgs(args map[string]interface{}, cfg *config.Config) (analysisRequest, error) {
	req := analysisRequest{
		TopN:         cfg.Analysis.TopN,
		OutputFormat: cfg.Analysis.OutputFormat,
	}

	uri, ok := args["csv_uri"].(string)
	if !ok || uri == "" {
		return req, fmt.Errorf("missing or invalid required argument: csv_uri (string)")
	}
	req.URI = uri

	if format, ok := args["output_format"].(string); ok && format != "" {
		req.OutputFormat = format
	}
	if topNFloat, ok := args["top_n"].(float64); ok {
		req.TopN = int(topNFloat)
	}
	if req.TopN <= 0 {
		req.TopN = 5 // 确保 topN 是正数
	}

	filter, err := cfg.FilterState()
	if err != nil {
		return req, err
	}
	if minSize, ok := args["min_size"].(float64); ok {
		if minSize < 0 {
			return req, fmt.Errorf("invalid argument: min_size must not be negative")
		}
		filter.MinSize = int64(minSize)
	}
	if cats, ok := args["categories"].(string); ok && strings.TrimSpace(cats) != "" {
		parsed, err := config.ParseCategories(config.SplitList(cats))
		if err != nil {
			return req, fmt.Errorf("invalid argument: categories: %w", err)
		}
		filter.Categories = parsed
	}
	if search, ok := args["search"].(string); ok && search != "" {
		filter.Search = search
	}
	if pattern, ok := args["path_pattern"].(string); ok && pattern != "" {
		filter.PathPattern = pattern
	}
	req.Filter = filter
	return req, nil
}

// handleAnalyzeBloat 处理分析符号大小导出文件的请求。
// 这是 MCP 工具 "analyze_bloat" 的处理器函数。
func handleAnalyzeBloat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// --- 1. 获取并验证参数 ---
	req, err := parseAnalysisArgs(request.Params.Arguments, appConfig)
	if err != nil {
		return nil, err
	}
	log.Printf("Handling analyze_bloat: URI=%s, TopN=%d, Format=%s, Filter=%+v", req.URI, req.TopN, req.OutputFormat, req.Filter)

	// --- 2. 获取导出文件（本地或下载）并构建层级树 ---
	tree, err := loadTreeFromURI(req.URI)
	if err != nil {
		return nil, err
	}

	// --- 3. 生成报告 ---
	analysisResult, err := analyzer.AnalyzeHierarchy(tree, req.Filter, req.TopN, req.OutputFormat)
	if err != nil {
		log.Printf("Analysis error for '%s': %v", req.URI, err)
		return nil, err
	}

	// --- 4. 返回分析结果 ---
	log.Printf("Analysis successful for '%s'. Result length: %d", req.URI, len(analysisResult))
	return textResult(analysisResult), nil
}

// handleCompareBloat 处理比较两个导出文件的请求，报告增长最多的符号。
func handleCompareBloat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	// --- 1. 获取并验证参数 ---
	oldURI, ok := args["old_csv_uri"].(string)
	if !ok || oldURI == "" {
		return nil, fmt.Errorf("missing or invalid required argument: old_csv_uri (string)")
	}
	newURI, ok := args["new_csv_uri"].(string)
	if !ok || newURI == "" {
		return nil, fmt.Errorf("missing or invalid required argument: new_csv_uri (string)")
	}
	threshold, ok := args["threshold"].(float64)
	if !ok {
		threshold = 0.1 // 默认增长阈值 10%
	}
	limitFloat, ok := args["limit"].(float64)
	if !ok {
		limitFloat = 10.0
	}
	limit := int(limitFloat)
	if limit <= 0 {
		limit = 10
	}
	outputFormat, ok := args["output_format"].(string)
	if !ok || outputFormat == "" {
		outputFormat = "text"
	}

	log.Printf("Handling compare_bloat: Old=%s, New=%s, Threshold=%.2f, Limit=%d, Format=%s",
		oldURI, newURI, threshold, limit, outputFormat)

	// --- 2. 构建两棵层级树 ---
	oldTree, err := loadTreeFromURI(oldURI)
	if err != nil {
		return nil, fmt.Errorf("failed to load old export: %w", err)
	}
	newTree, err := loadTreeFromURI(newURI)
	if err != nil {
		return nil, fmt.Errorf("failed to load new export: %w", err)
	}

	// --- 3. 比较并返回结果 ---
	result, err := analyzer.CompareTrees(oldTree, newTree, threshold, limit, outputFormat)
	if err != nil {
		return nil, err
	}
	return textResult(result), nil
}

// handleClassifySymbol 处理对单个符号名称进行语言分类的请求。
func handleClassifySymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok := request.Params.Arguments["name"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid required argument: name (string)")
	}
	return textResult(describeClassification(name)), nil
}

// describeClassification 返回分类结果以及命中的规则。
func describeClassification(name string) string {
	category, rule := symtree.ClassifyRule(name)
	if rule == "" {
		return fmt.Sprintf("%q => %s (no rule matched)", name, category)
	}
	return fmt.Sprintf("%q => %s (rule: %s)", name, category, rule)
}

// resolveOutputPath 将相对路径转换为相对于当前工作目录的绝对路径。
func resolveOutputPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cwd, err := os.Getwd() // 获取当前工作目录 (服务器运行的目录)
	if err != nil {
		log.Printf("无法获取当前工作目录: %v", err)
		return p
	}
	abs := filepath.Join(cwd, p)
	log.Printf("将相对输出路径转换为绝对路径: %s", abs)
	return abs
}

var errGraphvizMissing = errors.New("Graphviz (dot 命令) 未找到或不在 PATH 中。生成 SVG 火焰图需要 Graphviz。\n" +
	"请先安装 Graphviz。常见安装方式：\n" +
	"- macOS (Homebrew): brew install graphviz\n" +
	"- Debian/Ubuntu: sudo apt-get update && sudo apt-get install graphviz\n" +
	"- CentOS/Fedora: sudo yum install graphviz 或 sudo dnf install graphviz\n" +
	"- Windows (Chocolatey): choco install graphviz")

// handleGenerateFlamegraph 处理生成火焰图的请求。
// 层级树先被导出为 pprof 格式，再交给 'go tool pprof' 渲染为 SVG。
func handleGenerateFlamegraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	// --- 1. 获取并验证参数 ---
	uri, ok := args["csv_uri"].(string)
	if !ok || uri == "" {
		return nil, fmt.Errorf("missing or invalid required argument: csv_uri (string)")
	}
	outputSvgPath, ok := args["output_svg_path"].(string)
	if !ok || outputSvgPath == "" {
		return nil, fmt.Errorf("missing or invalid required argument: output_svg_path (string)")
	}
	outputSvgPath = resolveOutputPath(outputSvgPath)

	log.Printf("Handling generate_flamegraph: URI=%s, Output=%s", uri, outputSvgPath)

	// --- 2. 检查 Graphviz (dot) 是否安装 ---
	if _, err := exec.LookPath("dot"); err != nil {
		log.Println(errGraphvizMissing.Error())
		return nil, errGraphvizMissing
	}
	log.Println("Graphviz (dot) found.")

	// --- 3. 构建层级树并导出为临时 pprof 文件 ---
	tree, err := loadTreeFromURI(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to load export for flamegraph: %w", err)
	}
	profilePath, cleanup, err := writeProfileTemp(tree)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// --- 4. 执行 go tool pprof ---
	cmdArgs := []string{"tool", "pprof", "-sample_index=vmsize", "-svg", "-output", outputSvgPath, profilePath}
	log.Printf("Executing command: go %s", strings.Join(cmdArgs, " "))

	cmd := exec.CommandContext(ctx, "go", cmdArgs...)
	cmdOutput, err := cmd.CombinedOutput() // 获取 stdout 和 stderr
	if err != nil {
		log.Printf("Error executing 'go tool pprof': %v\nOutput:\n%s", err, string(cmdOutput))
		return nil, fmt.Errorf("failed to generate flamegraph: %w. Output: %s", err, string(cmdOutput))
	}
	log.Printf("Successfully generated flamegraph: %s", outputSvgPath)

	// --- 5. 读取 SVG 文件内容并返回 ---
	textContent := mcp.TextContent{
		Type: "text",
		Text: fmt.Sprintf("火焰图已成功生成并保存到: %s", outputSvgPath),
	}

	svgBytes, readErr := os.ReadFile(outputSvgPath)
	if readErr != nil {
		log.Printf("成功生成 SVG 文件 '%s' 但读取失败: %v", outputSvgPath, readErr)
		// 即使读取失败，仍然返回成功生成的消息
		return &mcp.CallToolResult{
			Content: []mcp.Content{textContent},
		}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			textContent,
			mcp.TextContent{
				Type: "text", // 使用 text 类型，客户端可以根据内容判断是 SVG
				Text: string(svgBytes),
			},
		},
	}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
