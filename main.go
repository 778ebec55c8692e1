package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"gorm.io/gorm"

	"gomana/roster"
)

var baseDir string

func main() {
	connect := flag.String("connect", "", "read the server stream from a TCP relay at host:port")
	relay := flag.String("ws", "", "read the server stream from a websocket relay URL")
	pcaps := flag.String("pcap", "", "replay comma separated pcap/pcapng captures")
	dump := flag.String("dump", "", "replay a file of framed server packets")
	configDir := flag.String("config", "", "directory holding settings.json (default: working directory)")
	debugFlag := flag.Bool("debug", false, "verbose/debug logging")
	writeConfig := flag.Bool("write-config", false, "write the effective settings back to settings.json")
	flag.Parse()

	baseDir = os.Getenv("PWD")
	if baseDir == "" {
		var err error
		if baseDir, err = os.Getwd(); err != nil {
			log.Fatalf("get working directory: %v", err)
		}
	}
	dir := baseDir
	if *configDir != "" {
		dir = *configDir
	}

	cfg, err := loadSettings(dir)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if *relay != "" {
		cfg.RelayURL = *relay
	}
	setupLogging(cfg.Debug)
	defer syncLogging()
	defer func() {
		if r := recover(); r != nil {
			logError("panic: %v\n%s", r, debug.Stack())
		}
	}()
	if *writeConfig {
		if err := saveSettings(dir, cfg); err != nil {
			logError("%v", err)
		}
	}

	if cfg.RosterDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.RosterDB), 0755); err != nil {
			logError("create roster directory: %v", err)
		}
	}
	db, err := roster.OpenDB(cfg.RosterDB)
	if err != nil {
		logError("%v; keeping roster in memory", err)
		db = nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, db, *connect, *pcaps, *dump); err != nil {
		logError("%v", err)
		syncLogging()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Settings, db *gorm.DB, connect, pcaps, dump string) error {
	switch {
	case pcaps != "":
		var paths []string
		for _, p := range strings.Split(pcaps, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		var failed int
		for _, r := range replayCaptures(ctx, cfg, db, paths) {
			if r.sess != nil {
				fmt.Print(r.sess.summary())
			}
			if r.err != nil {
				failed++
				logError("%v", r.err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of the replayed streams failed", failed)
		}
		return nil

	case dump != "":
		f, err := os.Open(dump)
		if err != nil {
			return err
		}
		defer f.Close()
		s, err := newSession(filepath.Base(dump), cfg, db, nil, logger)
		if err != nil {
			return err
		}
		err = readPackets(s, f)
		return finishRun(s, err)

	case connect != "" || (cfg.RelayURL == "" && cfg.Host != ""):
		addr := connect
		if addr == "" {
			addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.ServerPort)
		}
		conn, err := dialTCP(ctx, addr)
		if err != nil {
			return err
		}
		defer conn.Close()
		s, err := newSession(addr, cfg, db, conn, logger)
		if err != nil {
			return err
		}
		logInfo("connected to %s", addr)
		return finishRun(s, tcpReadLoop(ctx, s, conn))

	case cfg.RelayURL != "":
		conn, err := dialRelay(ctx, cfg.RelayURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		s, err := newSession(cfg.RelayURL, cfg, db, wsWriter{conn: conn}, logger)
		if err != nil {
			return err
		}
		logInfo("connected to relay %s", cfg.RelayURL)
		return finishRun(s, wsReadLoop(ctx, s, conn))
	}
	flag.Usage()
	return nil
}

func finishRun(s *session, err error) error {
	if ferr := s.finish(); ferr != nil {
		logError("save roster: %v", ferr)
	}
	fmt.Print(s.summary())
	return err
}
