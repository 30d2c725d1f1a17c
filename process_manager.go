package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
)

// pprofSession 记录一个后台 pprof 进程及其使用的导出 profile 文件。
type pprofSession struct {
	process *os.Process
	cleanup func() // 删除导出的临时 profile 文件
}

// 全局变量，用于跟踪由本服务器启动的 pprof 进程
var (
	runningPprofs = make(map[int]*pprofSession) // 存储 PID 到会话的映射
	pprofMutex    sync.Mutex                    // 用于保护 runningPprofs 的互斥锁
)

// handleOpenInteractivePprof 处理在 macOS 上尝试打开 pprof 交互式 UI 的请求。
// 符号层级树会先被导出为 pprof 文件，pprof Web UI 读取该文件。
func handleOpenInteractivePprof(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("此功能仅在 macOS 上可用 (当前系统: %s)", runtime.GOOS)
	}

	args := request.Params.Arguments

	uri, ok := args["csv_uri"].(string)
	if !ok || uri == "" {
		return nil, fmt.Errorf("missing or invalid required argument: csv_uri (string)")
	}
	httpAddress, ok := args["http_address"].(string)
	if !ok || httpAddress == "" {
		httpAddress = appConfig.Server.PprofHTTPAddress // 默认端口
		log.Printf("No http_address provided, using default: %s", httpAddress)
	}

	log.Printf("Handling open_interactive_pprof: URI=%s, Address=%s", uri, httpAddress)

	if _, err := exec.LookPath("go"); err != nil {
		log.Println("Error: 'go' command not found in PATH.")
		return nil, fmt.Errorf("'go' command not found in PATH, cannot start pprof")
	}

	tree, err := loadTreeFromURI(uri)
	if err != nil {
		return nil, err
	}
	profilePath, cleanup, err := writeProfileTemp(tree)
	if err != nil {
		return nil, err
	}
	// 注意：不能在这里 defer cleanup()，因为 pprof 进程需要持续访问文件

	cmdArgs := []string{"tool", "pprof", "-sample_index=vmsize", fmt.Sprintf("-http=%s", httpAddress), profilePath}
	log.Printf("Preparing to execute command in background: go %s", strings.Join(cmdArgs, " "))

	// 进程生命周期由 disconnect_pprof_session 管理，不绑定到本次请求的 ctx
	cmd := exec.Command("go", cmdArgs...)
	if err := cmd.Start(); err != nil {
		log.Printf("Error starting 'go tool pprof' in background: %v", err)
		cleanup()
		return nil, fmt.Errorf("failed to start 'go tool pprof': %w", err)
	}

	pid := cmd.Process.Pid
	pprofMutex.Lock()
	runningPprofs[pid] = &pprofSession{process: cmd.Process, cleanup: cleanup}
	pprofMutex.Unlock()

	log.Printf("Successfully started 'go tool pprof' in background with PID: %d", pid)

	resultText := fmt.Sprintf("已成功在后台启动 'go tool pprof' (PID: %d) 来分析 '%s'", pid, uri)
	resultText += fmt.Sprintf("，监听地址约为 %s。", httpAddress)
	resultText += "\n你可以使用 'disconnect_pprof_session' 工具并提供 PID 来尝试终止此进程。"
	resultText += "\n注意：导出的临时 pprof 文件会在会话断开时被删除。"

	log.Println(resultText)
	return textResult(resultText), nil
}

// handleDisconnectPprofSession 处理断开指定 pprof 会话的请求。
func handleDisconnectPprofSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	pidFloat, ok := args["pid"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing or invalid required argument: pid (number)")
	}
	pid := int(pidFloat)
	if pid <= 0 {
		return nil, fmt.Errorf("invalid PID: %d", pid)
	}

	log.Printf("Handling disconnect_pprof_session for PID: %d", pid)

	session, ok := takeSession(pid)
	if !ok {
		log.Printf("PID %d not found in running pprof sessions.", pid)
		return nil, fmt.Errorf("未找到 PID 为 %d 的正在运行的 pprof 会话", pid)
	}
	defer session.cleanup()

	log.Printf("Attempting to terminate process with PID: %d", pid)
	if err := terminate(session.process, pid); err != nil {
		return nil, fmt.Errorf("尝试终止 PID %d 失败：%w", pid, err)
	}

	// 尝试释放进程资源（虽然信号可能异步处理，但这有助于清理）
	_, err := session.process.Wait()
	if err != nil && !strings.Contains(err.Error(), "wait: no child processes") && !strings.Contains(err.Error(), "signal:") {
		// 忽略 "no child processes" 和信号相关的错误，因为进程可能已经被信号终止
		log.Printf("Warning: Error waiting for process PID %d after signaling: %v", pid, err)
	}

	resultText := fmt.Sprintf("已成功向 PID %d 发送终止信号。", pid)
	log.Println(resultText)
	return textResult(resultText), nil
}

// takeSession 从 map 中移除并返回指定 PID 的会话。
func takeSession(pid int) (*pprofSession, bool) {
	pprofMutex.Lock()
	defer pprofMutex.Unlock()
	session, ok := runningPprofs[pid]
	if ok {
		delete(runningPprofs, pid)
	}
	return session, ok
}

// terminate 先发送 Interrupt，失败后再尝试 Kill。
func terminate(p *os.Process, pid int) error {
	err := p.Signal(os.Interrupt)
	if err == nil {
		return nil
	}
	log.Printf("Failed to send Interrupt signal to PID %d: %v. Trying Kill signal.", pid, err)
	if err = p.Signal(os.Kill); err != nil {
		log.Printf("Failed to send Kill signal to PID %d: %v", pid, err)
		return err
	}
	return nil
}

// cleanupPprofSessions 终止所有由本服务器启动的 pprof 进程并删除其临时文件。
func cleanupPprofSessions() {
	pprofMutex.Lock()
	sessions := runningPprofs
	runningPprofs = make(map[int]*pprofSession) // 清空 map
	pprofMutex.Unlock()

	if len(sessions) == 0 {
		log.Println("No running pprof processes to terminate.")
		return
	}

	log.Printf("Terminating %d pprof processes...", len(sessions))
	var wg sync.WaitGroup
	for pid, session := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Sending Interrupt signal to PID %d...", pid)
			_ = terminate(session.process, pid)
			session.cleanup()
		}()
	}
	wg.Wait() // 等待所有终止 goroutine 完成尝试
	log.Println("Cleanup finished.")
}

// setupSignalHandler 设置信号处理，用于在服务器退出时清理 pprof 进程。
// 这个函数应该在启动服务器之前被调用一次。
func setupSignalHandler() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		log.Printf("Received signal: %s. Cleaning up running pprof processes...", sig)
		cleanupPprofSessions()
	}()
}
