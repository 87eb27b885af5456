package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abrezinsky/kioskfeedback/internal/logger"
)

// sessionResetter abandons the current kiosk session
type sessionResetter interface {
	ResetSession(ctx context.Context) error
}

// console performs the operator's keyboard shortcuts
type console struct {
	log       logger.Logger
	resetter  sessionResetter
	staffURL  string
	shellURL  string
	open      func(url string) error
	openKiosk func(url string) error
	quit      func()
}

// handleKey runs the action bound to key. It returns true when the key
// asks the server to quit.
func (c *console) handleKey(key byte) bool {
	switch strings.ToLower(string(key)) {
	case "r":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.resetter.ResetSession(ctx); err != nil {
			fmt.Printf("%sReset failed: %v%s\n", red, err, reset)
		} else {
			fmt.Printf("%sSession reset%s\n", green, reset)
		}
	case "s":
		fmt.Printf("%sOpening staff console in browser...%s\n", cyan, reset)
		if err := c.open(c.staffURL); err != nil {
			fmt.Printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "u":
		c.openShell()
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			fmt.Printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			fmt.Printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		cycleLogLevel(c.log)
	case "?":
		printKeyboardHelp()
	case "q", "\x03":
		c.quit()
		return true
	}
	return false
}

// openShell launches the customer shell in a kiosk-mode browser
func (c *console) openShell() {
	if c.shellURL == "" {
		fmt.Printf("%sNo shell URL configured (use -shellurl)%s\n", yellow, reset)
		return
	}
	fmt.Printf("%sOpening customer shell in kiosk mode...%s\n", cyan, reset)
	if err := c.openKiosk(c.shellURL); err != nil {
		fmt.Printf("%sError opening browser: %v%s\n", red, err, reset)
	}
}

// cycleLogLevel cycles through debug -> info -> warn -> error
func cycleLogLevel(appLog logger.Logger) string {
	var next string
	switch appLog.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}

	appLog.SetLevel(logger.ParseLevel(next))
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
	return next
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sr%s      - Reset the current session\n", cyan, reset)
	fmt.Printf("    %ss%s      - Open staff console in browser\n", cyan, reset)
	fmt.Printf("    %su%s      - Open customer shell in kiosk mode\n", cyan, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}
