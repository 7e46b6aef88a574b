package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deepclaude/deepclaude-go/internal/app"
	"github.com/deepclaude/deepclaude-go/pkg/logger"
	"github.com/deepclaude/deepclaude-go/pkg/types"
)

func main() {
	// .env 中的变量优先级低于已有环境变量
	_ = godotenv.Load()
	logger.EnableDebugFromEnv()

	configPath := os.Getenv("DEEPCLAUDE_CONFIG")
	if configPath == "" {
		configPath = "./config/deepclaude.json"
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".deepclaude", "config.json")
		}
	}

	host := os.Getenv("DEEPCLAUDE_HOST")
	if host == "" {
		host = "0.0.0.0"
	}
	port := 8000
	if p := os.Getenv("DEEPCLAUDE_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 && n <= 65535 {
			port = n
		}
	}

	application, err := app.NewApplication(configPath, host, port)
	if err != nil {
		logger.Error("初始化应用失败: %v", err)
		os.Exit(1)
	}

	if err := runCLI(os.Args, application); err != nil {
		logger.Error("错误: %v", err)
		os.Exit(1)
	}
}

func runCLI(args []string, application *app.Application) error {
	if len(args) < 2 {
		printUsage()
		return nil
	}

	switch command := args[1]; command {
	case "server":
		return handleServer(args[2:], application)
	case "model":
		return handleModel(args[2:], application)
	case "config":
		return handleConfig(args[2:], application)
	case "system":
		return handleSystem(args[2:], application)
	case "proxy":
		return handleProxy(args[2:], application)
	default:
		fmt.Printf("未知命令: %s\n\n", command)
		printUsage()
		return fmt.Errorf("未知命令: %s", command)
	}
}

func printUsage() {
	fmt.Println("DeepClaude - 推理/目标模型组合网关配置服务")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  deepclaude <command> [arguments]")
	fmt.Println()
	fmt.Println("可用命令:")
	fmt.Println("  server     服务器管理")
	fmt.Println("  model      模型配置管理")
	fmt.Println("  config     配置文档管理")
	fmt.Println("  system     系统设置管理")
	fmt.Println("  proxy      代理设置管理")
	fmt.Println()
	fmt.Println("使用 'deepclaude <command>' 查看命令的详细帮助")
}

// ===== server 命令 =====

func handleServer(args []string, application *app.Application) error {
	if len(args) == 0 {
		fmt.Println("用法: deepclaude server <start|status>")
		return nil
	}

	switch args[0] {
	case "start":
		return handleServerStart(application)
	case "status":
		return handleServerStatus(application)
	default:
		return fmt.Errorf("未知的server子命令: %s", args[0])
	}
}

func handleServerStart(application *app.Application) error {
	// Ctrl+C 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.HTTPServer.Stop(ctx); err != nil {
			logger.Error("停止服务器失败: %v", err)
		}
	}()

	fmt.Println("服务器启动中，按 Ctrl+C 停止...")
	return application.HTTPServer.Start()
}

func handleServerStatus(application *app.Application) error {
	agg := application.Config.Get()

	fmt.Println("DeepClaude 配置服务状态:")
	fmt.Printf("配置文件: %s\n", application.Store.Path())
	fmt.Printf("文档版本: %d\n", agg.Version)
	fmt.Printf("推理模型: %d 个\n", len(agg.ReasonerModels))
	fmt.Printf("目标模型: %d 个\n", len(agg.TargetModels))
	fmt.Printf("组合模型: %d 个\n", len(agg.CompositeModels))
	fmt.Printf("日志级别: %s\n", agg.System.LogLevel)
	fmt.Printf("代理: 启用=%v 地址=%s\n", agg.Proxy.Enabled, agg.Proxy.Address)
	return nil
}

// ===== model 命令 =====

func handleModel(args []string, application *app.Application) error {
	if len(args) == 0 {
		printModelUsage()
		return nil
	}

	switch args[0] {
	case "list":
		return handleModelList(application)
	case "add":
		return handleModelAdd(args[1:], application)
	case "remove":
		return handleModelRemove(args[1:], application)
	default:
		fmt.Printf("未知的model子命令: %s\n\n", args[0])
		printModelUsage()
		return fmt.Errorf("未知的model子命令: %s", args[0])
	}
}

func printModelUsage() {
	fmt.Println("用法: deepclaude model <subcommand>")
	fmt.Println("描述: 模型配置管理")
	fmt.Println()
	fmt.Println("子命令:")
	fmt.Println("  list       列出所有模型")
	fmt.Println("  add        添加模型")
	fmt.Println("  remove     删除模型 (model remove <kind> <name>)")
}

func handleModelList(application *app.Application) error {
	reasoners := application.Config.ListReasonerModels()
	targets := application.Config.ListTargetModels()
	composites := application.Config.ListCompositeModels()

	fmt.Printf("推理模型 (共%d个):\n", len(reasoners))
	for _, m := range reasoners {
		fmt.Printf("  %s (model_id=%s, valid=%v)\n", m.Name, m.ModelID, m.IsValid)
	}
	fmt.Printf("\n目标模型 (共%d个):\n", len(targets))
	for _, m := range targets {
		fmt.Printf("  %s (model_id=%s, format=%s, valid=%v)\n", m.Name, m.ModelID, m.ModelFormat, m.IsValid)
	}
	fmt.Printf("\n组合模型 (共%d个):\n", len(composites))
	for _, m := range composites {
		fmt.Printf("  %s (reasoner=%s, target=%s, valid=%v)\n", m.Name, m.ReasonerRef, m.TargetRef, m.IsValid)
	}
	return nil
}

func handleModelAdd(args []string, application *app.Application) error {
	fs := flag.NewFlagSet("model add", flag.ContinueOnError)
	kind := fs.String("kind", "", "模型类型 (reasoner, target, composite)")
	name := fs.String("name", "", "模型名称")
	modelID := fs.String("model-id", "", "上游模型标识")
	apiKey := fs.String("api-key", "", "上游 API 密钥")
	baseURL := fs.String("base-url", "", "上游 API 基础地址")
	requestAddress := fs.String("request-address", "", "上游 API 请求地址")
	modelFormat := fs.String("model-format", "", "目标模型接口格式 (默认 openai)")
	originReasoning := fs.Bool("origin-reasoning", false, "是否使用原生推理输出")
	proxyOpen := fs.Bool("proxy", false, "是否通过代理访问")
	reasonerRef := fs.String("reasoner", "", "组合模型引用的推理模型名称")
	targetRef := fs.String("target", "", "组合模型引用的目标模型名称")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind == "" || *name == "" {
		return fmt.Errorf("缺少必要参数: --kind 和 --name")
	}

	ctx := context.Background()
	switch types.ModelKind(*kind) {
	case types.ModelKindReasoner:
		err := application.Config.AddReasonerModel(ctx, types.ReasonerModel{
			Name:              *name,
			ModelID:           *modelID,
			APIKey:            *apiKey,
			APIBaseURL:        *baseURL,
			APIRequestAddress: *requestAddress,
			IsOriginReasoning: *originReasoning,
			IsValid:           true,
			ProxyOpen:         *proxyOpen,
		})
		if err != nil {
			return fmt.Errorf("添加推理模型失败: %w", err)
		}
	case types.ModelKindTarget:
		err := application.Config.AddTargetModel(ctx, types.TargetModel{
			Name:              *name,
			ModelID:           *modelID,
			APIKey:            *apiKey,
			APIBaseURL:        *baseURL,
			APIRequestAddress: *requestAddress,
			ModelFormat:       *modelFormat,
			IsValid:           true,
			ProxyOpen:         *proxyOpen,
		})
		if err != nil {
			return fmt.Errorf("添加目标模型失败: %w", err)
		}
	case types.ModelKindComposite:
		if *reasonerRef == "" || *targetRef == "" {
			return fmt.Errorf("组合模型缺少参数: --reasoner 和 --target")
		}
		err := application.Config.AddCompositeModel(ctx, types.CompositeModel{
			Name:        *name,
			ModelID:     *modelID,
			ReasonerRef: *reasonerRef,
			TargetRef:   *targetRef,
			IsValid:     true,
		})
		if err != nil {
			return fmt.Errorf("添加组合模型失败: %w", err)
		}
	default:
		return fmt.Errorf("无效的模型类型: %s (支持: reasoner, target, composite)", *kind)
	}

	fmt.Printf("成功添加模型: %s/%s\n", *kind, *name)
	return nil
}

func handleModelRemove(args []string, application *app.Application) error {
	if len(args) < 2 {
		return fmt.Errorf("缺少参数: <kind> <name>")
	}

	ctx := context.Background()
	kind, name := args[0], args[1]
	var err error
	switch types.ModelKind(kind) {
	case types.ModelKindReasoner:
		err = application.Config.RemoveReasonerModel(ctx, name)
	case types.ModelKindTarget:
		err = application.Config.RemoveTargetModel(ctx, name)
	case types.ModelKindComposite:
		err = application.Config.RemoveCompositeModel(ctx, name)
	default:
		return fmt.Errorf("无效的模型类型: %s", kind)
	}
	if err != nil {
		return fmt.Errorf("删除模型失败: %w", err)
	}

	fmt.Printf("成功删除模型: %s/%s\n", kind, name)
	return nil
}

// ===== config 命令 =====

func handleConfig(args []string, application *app.Application) error {
	if len(args) == 0 {
		fmt.Println("用法: deepclaude config <show|validate|export|import>")
		return nil
	}

	switch args[0] {
	case "show":
		return handleConfigShow(application)
	case "validate":
		return handleConfigValidate(application)
	case "export":
		return handleConfigExport(args[1:], application)
	case "import":
		return handleConfigImport(args[1:], application)
	default:
		return fmt.Errorf("未知的config子命令: %s", args[0])
	}
}

func handleConfigShow(application *app.Application) error {
	data, err := json.MarshalIndent(application.Config.Get(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func handleConfigValidate(application *app.Application) error {
	agg := application.Config.Get()
	violations := 0
	for _, m := range application.Config.ListCompositeModels() {
		if _, ok := agg.ReasonerModels[m.ReasonerRef]; !ok {
			fmt.Printf("组合模型 %s: 推理模型 %s 不存在\n", m.Name, m.ReasonerRef)
			violations++
		}
		if _, ok := agg.TargetModels[m.TargetRef]; !ok {
			fmt.Printf("组合模型 %s: 目标模型 %s 不存在\n", m.Name, m.TargetRef)
			violations++
		}
	}
	if violations > 0 {
		return fmt.Errorf("引用校验发现 %d 个问题", violations)
	}
	fmt.Println("配置校验通过")
	return nil
}

func handleConfigExport(args []string, application *app.Application) error {
	fs := flag.NewFlagSet("config export", flag.ContinueOnError)
	output := fs.String("output", "", "导出文件路径 (默认输出到标准输出)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := application.Config.Export(context.Background())
	if err != nil {
		return fmt.Errorf("导出配置失败: %w", err)
	}

	if *output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(*output, data, 0600); err != nil {
		return fmt.Errorf("写入导出文件失败: %w", err)
	}
	fmt.Printf("已导出配置到: %s\n", *output)
	return nil
}

func handleConfigImport(args []string, application *app.Application) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少参数: <file>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("读取导入文件失败: %w", err)
	}
	if _, err := application.Config.Import(context.Background(), data); err != nil {
		return fmt.Errorf("导入配置失败: %w", err)
	}

	fmt.Println("配置导入成功")
	return nil
}

// ===== system / proxy 命令 =====

func handleSystem(args []string, application *app.Application) error {
	if len(args) == 0 || args[0] == "show" {
		sys := application.Config.GetSystemSettings()
		fmt.Printf("允许来源: %s\n", strings.Join(sys.AllowOrigins, ", "))
		fmt.Printf("日志级别: %s\n", sys.LogLevel)
		fmt.Printf("API 密钥: %s\n", sys.APIKey)
		fmt.Printf("记录Token: %v (最多 %d 条)\n", sys.SaveTokens, sys.SaveTokensMax)
		return nil
	}
	if args[0] != "set" {
		return fmt.Errorf("未知的system子命令: %s", args[0])
	}

	fs := flag.NewFlagSet("system set", flag.ContinueOnError)
	origins := fs.String("allow-origins", "", "允许的来源，逗号分隔")
	logLevel := fs.String("log-level", "", "日志级别")
	apiKey := fs.String("api-key", "", "管理 API 密钥")
	saveTokens := fs.String("save-tokens", "", "是否记录Token用量 (true/false)")
	saveTokensMax := fs.Int("save-tokens-max", 0, "Token记录条数上限")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var patch types.SystemSettingsPatch
	if *origins != "" {
		list := strings.Split(*origins, ",")
		patch.AllowOrigins = &list
	}
	if *logLevel != "" {
		patch.LogLevel = logLevel
	}
	if *apiKey != "" {
		patch.APIKey = apiKey
	}
	if *saveTokens != "" {
		enabled := strings.EqualFold(*saveTokens, "true")
		patch.SaveTokens = &enabled
	}
	if *saveTokensMax != 0 {
		patch.SaveTokensMax = saveTokensMax
	}

	sys, err := application.Config.UpdateSystemSettings(context.Background(), patch)
	if err != nil {
		return fmt.Errorf("更新系统设置失败: %w", err)
	}
	fmt.Printf("系统设置已更新: 日志级别=%s, 允许来源=%s\n",
		sys.LogLevel, strings.Join(sys.AllowOrigins, ", "))
	return nil
}

func handleProxy(args []string, application *app.Application) error {
	if len(args) == 0 || args[0] == "show" {
		proxy := application.Config.GetProxySettings()
		fmt.Printf("代理: 启用=%v 地址=%s\n", proxy.Enabled, proxy.Address)
		return nil
	}
	if args[0] != "set" {
		return fmt.Errorf("未知的proxy子命令: %s", args[0])
	}

	fs := flag.NewFlagSet("proxy set", flag.ContinueOnError)
	enabled := fs.String("enabled", "", "是否启用代理 (true/false)")
	address := fs.String("address", "", "代理地址")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var patch types.ProxySettingsPatch
	if *enabled != "" {
		on := strings.EqualFold(*enabled, "true")
		patch.Enabled = &on
	}
	if *address != "" {
		patch.Address = address
	}

	proxy, err := application.Config.UpdateProxySettings(context.Background(), patch)
	if err != nil {
		return fmt.Errorf("更新代理设置失败: %w", err)
	}
	fmt.Printf("代理设置已更新: 启用=%v 地址=%s\n", proxy.Enabled, proxy.Address)
	return nil
}
