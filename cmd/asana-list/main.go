// Command asana-list runs the sync core: it polls Asana on a schedule,
// maintains the local cache, and logs update events. The desktop shell
// consumes the same store this process writes; agents can attach over
// MCP when enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avanrossum/asana-list/internal/asana"
	"github.com/avanrossum/asana-list/internal/config"
	"github.com/avanrossum/asana-list/internal/credential"
	"github.com/avanrossum/asana-list/internal/mcp"
	"github.com/avanrossum/asana-list/internal/store"
	asanasync "github.com/avanrossum/asana-list/internal/sync"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	verify := flag.Bool("verify", false, "check the stored credential and exit")
	once := flag.Bool("once", false, "run a single poll cycle and exit")
	setToken := flag.Bool("set-token", false, "seal and store an API token read from stdin, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	dbPath := cfg.DB.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			logger.Error("resolving database path", "error", err)
			os.Exit(1)
		}
	}

	st, recovery, err := store.Open(dbPath)
	if err != nil {
		logger.Error("storage is unusable", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	switch recovery {
	case store.RecoveryRestored:
		logger.Warn("database was corrupt; restored from backup", "path", dbPath)
	case store.RecoveryReset:
		logger.Warn("database and backup were corrupt; local data was reset", "path", dbPath)
	}

	keeper, keeperErr := credential.NewKeeper(credential.DefaultService)

	if *setToken {
		if keeperErr != nil {
			logger.Error("cannot store token", "error", keeperErr)
			os.Exit(1)
		}
		token, err := readToken(os.Stdin)
		if err != nil {
			logger.Error("reading token", "error", err)
			os.Exit(1)
		}
		box, err := keeper.Seal(token)
		if err != nil {
			logger.Error("sealing token", "error", err)
			os.Exit(1)
		}
		if err := st.SetTokenCiphertext(box); err != nil {
			logger.Error("storing token", "error", err)
			os.Exit(1)
		}
		if err := st.Flush(); err != nil {
			logger.Error("flushing store", "error", err)
			os.Exit(1)
		}
		fmt.Println("token stored")
		return
	}

	// Without the OS secret facility the process still runs; every
	// cycle reports a credential error until it is available.
	var source asana.Source = asana.StaticToken("")
	if keeperErr != nil {
		logger.Warn("OS secret facility unavailable; credential disabled", "error", keeperErr)
	} else {
		source = &credential.StoreSource{Store: st, Keeper: keeper}
	}

	client, err := asana.NewClient(asana.Config{
		BaseURL:    cfg.API.BaseURL,
		Credential: source,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("creating API client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *verify {
		ok, detail, err := client.VerifyCredential(ctx)
		if err != nil {
			logger.Error("verification failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(detail)
		if !ok {
			os.Exit(1)
		}
		return
	}

	engine := asanasync.New(asanasync.Config{
		Client: client,
		Store:  st,
		Logger: logger,
	})

	if *once {
		engine.Poll(ctx)
		logUpdate(logger, <-engine.Updates())
		if err := st.Flush(); err != nil {
			logger.Error("flushing store", "error", err)
		}
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-engine.Updates():
				logUpdate(logger, update)
			}
		}
	}()

	if cfg.MCP.Enabled {
		server := mcp.NewServer(mcp.Config{Store: st, Logger: logger})
		go func() {
			if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("mcp server error", "error", err)
			}
		}()
	}

	logger.Info("starting poll loop", "db", dbPath)
	engine.Run(ctx)

	if err := st.Flush(); err != nil {
		logger.Error("flushing store", "error", err)
	}
	logger.Info("shut down")
}

// readToken reads a token from r so the plaintext never appears in
// process arguments.
func readToken(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}

func logUpdate(logger *slog.Logger, update asanasync.Update) {
	switch update.Kind {
	case asanasync.UpdateData:
		logger.Info("cache updated",
			"tasks", len(update.Tasks),
			"projects", len(update.Projects),
		)
	case asanasync.UpdateError:
		logger.Warn("sync failed, keeping cached data", "error", update.Err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
