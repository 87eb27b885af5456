package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/app"
	"github.com/abrezinsky/kioskfeedback/internal/auth"
	"github.com/abrezinsky/kioskfeedback/internal/browser"
	"github.com/abrezinsky/kioskfeedback/internal/config"
	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/pkg/kioskapi"
	"github.com/abrezinsky/kioskfeedback/web"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	red    = "\033[31m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

// showBanner prints the startup banner
func showBanner(deviceID string) {
	width := 62
	border := strings.Repeat("═", width)

	lines := []string{
		"",
		"   KIOSK FEEDBACK",
		"   session controller " + version,
		"",
		"   device " + deviceID,
		"",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range lines {
		fmt.Printf("  %s║%s%-*s%s║%s\n", cyan, yellow, width, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

func main() {
	port := flag.Int("port", 8090, "HTTP server port")
	dbPath := flag.String("db", "kiosk-journal.db", "SQLite journal path")
	envFile := flag.String("env", ".env", "Environment file (ignored if missing)")
	staffPw := flag.String("staffpw", "", "Staff password (KIOSK_STAFF_PASSWORD, else auto-generated)")
	logLevel := flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	shellURL := flag.String("shellurl", "", "Customer shell URL opened in kiosk mode")
	openUI := flag.Bool("openui", false, "Open the customer shell in a kiosk-mode browser on startup")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `KioskFeedback - POS Feedback Kiosk Session Controller

Usage:
  kioskfeedback [options]

Options:
  -port int        HTTP server port (default 8090)
  -db string       SQLite journal path (default "kiosk-journal.db")
  -env string      Environment file (default ".env")
  -staffpw str     Staff password (auto-generated if not set)
  -loglevel str    Log level: debug, info, warn, error (default "info")
  -shellurl str    Customer shell URL opened in kiosk mode
  -openui          Open the customer shell on startup
  -nokeyboard      Disable keyboard shortcuts
  -version         Show version and exit
  -help            Show this help message

Environment:
  API_BASE_URL            Backend base URL (required)
  KIOSK_DEVICE_ID         Device id (default KIOSK_MAIN)
  POLL_INTERVAL_MS        Poll interval (default 2000)
  INACTIVITY_TIMEOUT_MS   Idle session timeout (default 90000)
  HARD_TIMEOUT_MS         Maximum session length (default 180000)
  THANK_YOU_MS            Thank-you screen duration (default 5000)
  NATS_URL                Staff notification server (optional)
  KIOSK_STAFF_PASSWORD    Staff password (optional)

Keyboard Shortcuts (when enabled):
  r              Reset the current session
  s              Open staff console in browser
  u              Open customer shell in kiosk mode
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  kioskfeedback                                # Settings from .env
  kioskfeedback -port 8080 -db /data/kiosk.db  # Custom port and journal
  kioskfeedback -openui -shellurl http://localhost:3000

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("kioskfeedback %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	showBanner(cfg.DeviceID)

	password := *staffPw
	if password == "" {
		password = cfg.StaffPassword
	}
	if password == "" {
		password = auth.GeneratePassword()
	}
	staffAuth := auth.New(password)

	appLog := logger.NewWithLevel(logger.ParseLevel(*logLevel))
	client := kioskapi.NewHTTPClient(cfg.APIBaseURL, appLog.With("component", "gateway"))

	a, err := app.New(appLog, cfg, *dbPath, client, web.GetTemplatesFS(), web.GetStaticFS(), staffAuth)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)

	addr := fmt.Sprintf(":%d", *port)
	appLog.Info("Staff password", "password", password)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(addr)
	}()

	c := &console{
		log:       appLog,
		resetter:  a,
		staffURL:  fmt.Sprintf("http://localhost:%d/staff", *port),
		shellURL:  *shellURL,
		open:      browser.Open,
		openKiosk: browser.OpenKiosk,
		quit:      stop,
	}

	if *openUI {
		c.openShell()
	}

	if !*noKeyboard {
		printKeyboardHelp()
		go listenForKeyboard(c)
	} else {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -nokeyboard=false to enable)%s\n\n", yellow, reset)
	}

	select {
	case err := <-serverErr:
		a.Close()
		if err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		fmt.Printf("%sShutting down server...%s\n", yellow, reset)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			appLog.Warn("Graceful shutdown failed", "error", err)
		}
	}
}
