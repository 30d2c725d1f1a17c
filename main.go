package main

import (
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v2"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/config"
)

// appConfig 在启动时由 --config 指定的文件加载，工具参数未提供时使用其中的默认值。
var appConfig = config.Default()

func main() {
	app := &cli.App{
		Name:  "bloat-analyzer-mcp",
		Usage: "Analyze binary size exports by symbol hierarchy, as an MCP server or from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.DefaultPath,
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			appConfig = cfg
			return nil
		},
		Action: runServer, // 默认以 stdio 方式启动 MCP 服务器
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the MCP server on stdio",
				Action: runServer,
			},
			analyzeCommand(),
			diffCommand(),
			flamegraphCommand(),
			classifyCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newMCPServer 创建 MCP 服务器并注册所有工具。
func newMCPServer(cfg *config.Config) *server.MCPServer {
	// 1. 初始化 MCP 服务器
	mcpServer := server.NewMCPServer(
		cfg.Server.Name,       // 服务器名称
		cfg.Server.Version,    // 服务器版本
		server.WithLogging(),  // 启用日志记录
		server.WithRecovery(), // 启用 panic 恢复
	)

	// 2. 定义 analyze_bloat 工具及其参数
	analyzeTool := mcp.NewTool("analyze_bloat",
		mcp.WithDescription("分析二进制体积导出文件 (CSV 或 JSON，包含 symbols、vmsize 列)，按符号层级汇总大小、语言分类和模板/实例化变体。"),
		mcp.WithString("csv_uri",
			mcp.Description("要分析的导出文件的 URI (支持 'file://', 'http://', 'https://' 或本地路径)。例如 'file:///path/to/sizes.csv'。"),
			mcp.Required(),
		),
		mcp.WithNumber("top_n",
			mcp.Description("返回结果的数量上限 (例如 Top 5, Top 10)。"),
			mcp.DefaultNumber(float64(cfg.Analysis.TopN)),
		),
		mcp.WithString("output_format",
			mcp.Description("分析结果的输出格式。"),
			mcp.DefaultString(cfg.Analysis.OutputFormat),
			mcp.Enum("text", "markdown", "json", "flamegraph-json"),
		),
		mcp.WithNumber("min_size",
			mcp.Description("只保留聚合大小不小于该值 (字节) 的符号。"),
		),
		mcp.WithString("categories",
			mcp.Description("逗号分隔的语言分类过滤，例如 'CPP,Rust'。可选值: CPP (或 C++), Rust, Zig, SysV, Other。"),
		),
		mcp.WithString("search",
			mcp.Description("按符号名称进行不区分大小写的子串过滤。"),
		),
		mcp.WithString("path_pattern",
			mcp.Description("按层级路径进行 glob 过滤，段之间用 '/' 分隔，例如 'std/**'。"),
		),
	)

	// 3. 定义 compare_bloat 工具
	compareTool := mcp.NewTool("compare_bloat",
		mcp.WithDescription("比较同一二进制的两个导出文件，列出体积增长最多的符号。"),
		mcp.WithString("old_csv_uri",
			mcp.Description("较早构建的导出文件 URI。"),
			mcp.Required(),
		),
		mcp.WithString("new_csv_uri",
			mcp.Description("较新构建的导出文件 URI。"),
			mcp.Required(),
		),
		mcp.WithNumber("threshold",
			mcp.Description("最小相对增长比例 (0.1 表示 10%)。"),
			mcp.DefaultNumber(0.1),
		),
		mcp.WithNumber("limit",
			mcp.Description("最多列出的符号数量。"),
			mcp.DefaultNumber(10.0),
		),
		mcp.WithString("output_format",
			mcp.Description("比较结果的输出格式。"),
			mcp.DefaultString("text"),
			mcp.Enum("text", "json"),
		),
	)

	// 4. 定义 generate_flamegraph 工具
	flamegraphTool := mcp.NewTool("generate_flamegraph",
		mcp.WithDescription("将符号层级导出为 pprof 格式，并使用 'go tool pprof' 生成 SVG 图。"),
		mcp.WithString("csv_uri",
			mcp.Description("导出文件的 URI (支持 'file://', 'http://', 'https://' 或本地路径)。"),
			mcp.Required(),
		),
		mcp.WithString("output_svg_path",
			mcp.Description("生成的 SVG 文件的保存路径 (必须是绝对路径或相对于工作区的路径)。"),
			mcp.Required(),
		),
	)

	// 5. 定义 classify_symbol 工具
	classifyTool := mcp.NewTool("classify_symbol",
		mcp.WithDescription("判断符号名称来自哪种语言或工具链 (CPP, Rust, Zig, SysV, Other)，并给出命中的规则。"),
		mcp.WithString("name",
			mcp.Description("要分类的符号名称。"),
			mcp.Required(),
		),
	)

	// 6. 定义 open_interactive_pprof 工具 (仅限 macOS)
	openInteractiveTool := mcp.NewTool("open_interactive_pprof",
		mcp.WithDescription("【仅限 macOS】将符号层级导出为 pprof 文件，并在后台启动 'go tool pprof' 交互式 Web UI。成功启动后会返回进程 PID，用于后续手动断开连接。"),
		mcp.WithString("csv_uri",
			mcp.Description("导出文件的 URI (支持 'file://', 'http://', 'https://' 或本地路径)。"),
			mcp.Required(),
		),
		mcp.WithString("http_address",
			mcp.Description("指定 pprof Web UI 的监听地址和端口 (例如 ':8081')。如果省略，使用配置中的默认地址。"),
		),
	)

	// 7. 定义 disconnect_pprof_session 工具
	disconnectTool := mcp.NewTool("disconnect_pprof_session",
		mcp.WithDescription("尝试终止由 'open_interactive_pprof' 启动的指定后台 pprof 进程。"),
		mcp.WithNumber("pid", // 使用 Number 类型，因为 JSON 通常将数字表示为 float64
			mcp.Description("要终止的后台 pprof 进程的 PID (由 'open_interactive_pprof' 返回)。"),
			mcp.Required(),
		),
	)

	// 8. 将所有工具及其处理器函数添加到服务器
	mcpServer.AddTool(analyzeTool, handleAnalyzeBloat)
	mcpServer.AddTool(compareTool, handleCompareBloat)
	mcpServer.AddTool(flamegraphTool, handleGenerateFlamegraph)
	mcpServer.AddTool(classifyTool, handleClassifySymbol)
	mcpServer.AddTool(openInteractiveTool, handleOpenInteractivePprof)
	mcpServer.AddTool(disconnectTool, handleDisconnectPprofSession)

	return mcpServer
}

func runServer(c *cli.Context) error {
	mcpServer := newMCPServer(appConfig)

	// 设置信号处理程序以进行清理
	setupSignalHandler() // 在服务器启动前设置

	log.Printf("Starting %s MCP server via stdio...", appConfig.Server.Name)
	err := server.ServeStdio(mcpServer)
	cleanupPprofSessions() // 服务器退出后不保留后台 pprof 进程
	if err != nil {
		return cli.Exit("Server error: "+err.Error(), 1)
	}
	return nil
}
