package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ByLCY/invoicestudio/config"
	"github.com/ByLCY/invoicestudio/document"
	"github.com/ByLCY/invoicestudio/dsl"
	"github.com/ByLCY/invoicestudio/pipeline"
	"github.com/ByLCY/invoicestudio/placeholder"
	canvasrenderer "github.com/ByLCY/invoicestudio/renderer/canvas"
	"github.com/ByLCY/invoicestudio/server"
	"github.com/ByLCY/invoicestudio/store"
)

const usage = `用法: invoicestudio <命令> [参数]

命令:
  serve    启动 HTTP 服务
  render   把发票按模板导出为 PDF
  import   从模板文本导入模板
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "serve":
		err = serveCmd(os.Args[2:])
	case "render":
		err = renderCmd(os.Args[2:])
	case "import":
		err = importCmd(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s 失败: %v", os.Args[1], err)
	}
}

// app 汇总一次运行所需的依赖。
type app struct {
	cfg       config.Config
	db        *store.SQLite
	redis     *store.Redis
	templates *store.Cache
	renderer  *canvasrenderer.Renderer
	pipeline  *pipeline.Pipeline
}

func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	db, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	var kv store.KV = store.NewMapKV()
	if cfg.Redis.Host != "" {
		r := store.NewRedis(&store.RedisConf{
			Host: cfg.Redis.Host,
			Port: cfg.Redis.Port,
			PW:   cfg.Redis.Password,
			DB:   cfg.Redis.DB,
		})
		if err := r.Ping(ctx); err != nil {
			log.Printf("[WARN] redis 不可用，改用进程内缓存: %v", err)
			_ = r.Close()
		} else {
			a.redis = r
			kv = r
		}
	}
	a.templates = store.NewCache(db, kv, cfg.Redis.CacheTTL())

	a.renderer = canvasrenderer.NewRenderer(cfg.Render.FontDir)
	a.pipeline, err = pipeline.New(pipeline.Config{
		Templates:   a.templates,
		Invoices:    db,
		Painter:     a.renderer,
		Rasterizer:  a.renderer,
		NewEmbedder: canvasrenderer.NewEmbedder,
		Resolver: placeholder.NewResolver(placeholder.Options{
			DateLayout: cfg.Render.DateLayout,
			Currency:   cfg.Render.Currency,
		}),
		PixelRatio: cfg.Render.PixelRatio,
		Creator:    cfg.Render.Creator,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Printf("[WARN] 关闭数据库失败: %v", err)
	}
}

// seedPresets 在模板库为空时写入内置模板。
func (a *app) seedPresets(ctx context.Context) error {
	list, err := a.templates.ListTemplates(ctx)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		return nil
	}
	for _, p := range document.Presets() {
		if err := a.templates.SaveTemplate(ctx, p); err != nil {
			return fmt.Errorf("写入内置模板 %s 失败: %w", p.Name, err)
		}
	}
	log.Printf("[INFO] seeded %d preset templates", len(document.Presets()))
	return nil
}

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "invoicestudio.toml", "配置文件路径")
	sessionIdle := fs.Duration("session-idle", 30*time.Minute, "编辑会话空闲超时")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.seedPresets(ctx); err != nil {
		return err
	}

	srv := server.New(server.Options{
		Templates:  a.templates,
		Exporter:   a.pipeline,
		Painter:    a.renderer,
		Rasterizer: a.renderer,
	})

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = srv.Shutdown()
				return
			case <-ticker.C:
				if n := srv.Sessions().Prune(*sessionIdle); n > 0 {
					log.Printf("[INFO] pruned %d idle editor sessions", n)
				}
			}
		}
	}()

	return srv.Listen(a.cfg.Server.Addr)
}

func renderCmd(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "invoicestudio.toml", "配置文件路径")
	templateID := fs.String("template", "", "模板 id")
	invoiceID := fs.String("invoice", "", "发票 id")
	dataPath := fs.String("data", "", "发票 JSON 文件；提供时先写入存储再渲染")
	output := fs.String("out", "", "PDF 输出路径，默认使用发票编号命名")
	_ = fs.Parse(args)

	if *templateID == "" || *invoiceID == "" {
		return errors.New("必须指定 -template 与 -invoice")
	}
	ctx := context.Background()
	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.seedPresets(ctx); err != nil {
		return err
	}

	if *dataPath != "" {
		raw, err := os.ReadFile(*dataPath)
		if err != nil {
			return fmt.Errorf("无法读取发票数据 %s: %w", *dataPath, err)
		}
		var rec store.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("解析发票 JSON 失败: %w", err)
		}
		if err := a.db.SaveInvoice(ctx, *invoiceID, rec); err != nil {
			return err
		}
	}

	res, err := a.pipeline.Render(ctx, pipeline.Request{TemplateID: *templateID, InvoiceID: *invoiceID, ViewZoom: 1})
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Printf("[WARN] %s", w)
	}
	out := *output
	if out == "" {
		out = res.FileName
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	if err := os.WriteFile(out, res.PDF, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	fmt.Printf("已生成 PDF：%s\n", out)
	return nil
}

func importCmd(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "invoicestudio.toml", "配置文件路径")
	input := fs.String("in", "", "模板文本路径")
	varsJSON := fs.String("vars", "", "代入描述与文本的 JSON 变量")
	_ = fs.Parse(args)

	if *input == "" {
		return errors.New("必须指定 -in")
	}
	var vars map[string]any
	if *varsJSON != "" {
		if err := json.Unmarshal([]byte(*varsJSON), &vars); err != nil {
			return fmt.Errorf("解析 vars JSON 失败: %w", err)
		}
	}
	file, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("无法打开模板文件 %s: %w", *input, err)
	}
	defer file.Close()

	tpl, err := dsl.Import(file, vars)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.templates.SaveTemplate(ctx, tpl); err != nil {
		return err
	}
	fmt.Printf("已导入模板：%s (%s)\n", tpl.Name, tpl.ID)
	return nil
}
