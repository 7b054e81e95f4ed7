package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/config"
	"github.com/l1jgo/lockstep/internal/core/event"
	coresys "github.com/l1jgo/lockstep/internal/core/system"
	"github.com/l1jgo/lockstep/internal/data"
	"github.com/l1jgo/lockstep/internal/game"
	gonet "github.com/l1jgo/lockstep/internal/net"
	"github.com/l1jgo/lockstep/internal/persist"
	"github.com/l1jgo/lockstep/internal/savegame"
	"github.com/l1jgo/lockstep/internal/scripting"
	"github.com/l1jgo/lockstep/internal/system"
	"github.com/l1jgo/lockstep/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         lockstep  command scheduler       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m遊戲:\033[0m %s\n\n", name)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		if r > 0x7F {
			n += 2
		} else {
			n++
		}
	}
	return n
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/lockstep.toml"
	if p := os.Getenv("LOCKSTEP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Store (optional)
	printSection("資料庫")
	var (
		replays *persist.ReplayRepo
		saves   *persist.SaveRepo
	)
	if cfg.Database.Driver != "none" {
		initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(initCtx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK(fmt.Sprintf("%s 連線成功", db.Dialect))

		if err := persist.RunMigrations(initCtx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("資料庫遷移完成")
		replays, saves = persist.NewReplayRepo(db), persist.NewSaveRepo(db)
	} else {
		printOK("未設定資料庫，僅寫入存檔")
	}
	fmt.Println()

	// 4. Static data and world
	printSection("遊戲資料")
	buildings, err := data.LoadBuildingTable(cfg.Data.Buildings)
	if err != nil {
		return fmt.Errorf("load buildings: %w", err)
	}
	printStat("建築類型", buildings.Count())

	st := world.NewState(cfg.Map.Width, cfg.Map.Height, buildings)
	for _, p := range cfg.Players {
		if err := st.AddPlayer(world.PlayerNumber(p.Number), p.Name); err != nil {
			return fmt.Errorf("player %d: %w", p.Number, err)
		}
	}
	printStat("玩家", len(cfg.Players))

	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	printOK("Lua 腳本引擎就緒")

	factory := command.NewDefaultFactory(log)
	printStat("指令類型", len(factory.Tags()))
	fmt.Println()

	// 5. Game
	bus := event.NewBus()
	g := game.New(game.Config{Buckets: cfg.Sim.Buckets}, st, factory, scripts, bus, log)

	var firstSeq int64
	if cfg.Save.Resume != "" {
		h, err := g.Load(cfg.Save.Resume)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		if replays != nil {
			if firstSeq, err = replays.NextSeq(ctx, h.GameID); err != nil {
				return fmt.Errorf("resume: %w", err)
			}
		}
	}

	var staleTotal int
	event.Subscribe(bus, func(event.CommandStale) { staleTotal++ })
	event.Subscribe(bus, func(e event.GameSaved) {
		log.Debug("存檔事件", zap.String("path", e.Path), zap.Stringer("gametime", e.GameTime))
	})

	level, err := savegame.ParseLevel(cfg.Save.Level)
	if err != nil {
		return err
	}

	// 6. Systems
	in := make(chan []byte, cfg.Sim.InQueueSize)
	inputSys := system.NewInputSystem(g, in, cfg.Sim.MaxPacketsPerTick, firstSeq, log)
	persistSys := system.NewPersistenceSystem(g, inputSys, replays, saves, cfg.Save.Dir, level, cfg.Save.AutosaveEvery, log)

	runner := coresys.NewRunner()
	runner.Register(inputSys)
	runner.Register(system.NewEventDispatchSystem(bus, log))
	runner.Register(system.NewCommandSystem(g, cfg.Sim.Speed))
	runner.Register(persistSys)

	startPath, err := persistSys.SaveNow()
	if err != nil {
		return fmt.Errorf("start save: %w", err)
	}

	if cfg.Sim.Stream != "" {
		go feedStream(ctx, cfg.Sim.Stream, in, log)
	}

	// 7. Start game loop
	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("模擬就緒")
	printReady(fmt.Sprintf("遊戲 %s", g.ID()))
	printReady(fmt.Sprintf("起始存檔 %s", startPath))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s, speed: %.2f)", cfg.Sim.TickRate, cfg.Sim.Speed))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			if err := runner.Tick(cfg.Sim.TickRate); err != nil {
				log.Error("模擬中止", zap.Stringer("gametime", g.Now()), zap.Error(err))
				return err
			}
		case <-ctx.Done():
			log.Info("收到關閉信號")
			path, err := persistSys.SaveNow()
			if err != nil {
				return fmt.Errorf("final save: %w", err)
			}
			log.Info("伺服器已停止",
				zap.String("save", path),
				zap.Stringer("gametime", g.Now()),
				zap.Uint64("executed", g.Executed()),
				zap.Int("stale", staleTotal),
				zap.String("digest", fmt.Sprintf("%x", g.SyncDigest())),
			)
			return nil
		}
	}
}

// feedStream reads framed wire packets from path ("-" for stdin) into in
// until the stream ends or ctx is cancelled.
func feedStream(ctx context.Context, path string, in chan<- []byte, log *zap.Logger) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.Error("無法開啟指令串流", zap.String("path", path), zap.Error(err))
			return
		}
		defer f.Close()
		r = f
	}

	count := 0
	for {
		frame, err := gonet.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			log.Info("指令串流讀取完畢", zap.String("path", path), zap.Int("packets", count))
			return
		}
		if err != nil {
			log.Error("指令串流讀取失敗", zap.String("path", path), zap.Error(err))
			return
		}
		select {
		case in <- frame:
			count++
		case <-ctx.Done():
			return
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
