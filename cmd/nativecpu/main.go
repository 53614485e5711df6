// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/ezrec/nativecpu/cpu"
	"github.com/ezrec/nativecpu/emulator"
)

func main() {
	var compile string
	var machine string
	var binary string
	var verbose bool
	var debug bool
	var profile bool

	flag.StringVar(&compile, "c", "", ".s file to assemble")
	flag.StringVar(&machine, "m", "", "Machine configuration .yaml file")
	flag.StringVar(&binary, "b", "", "Save the assembled binary, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&debug, "d", false, "Record execution slices for fault reports")
	flag.BoolVar(&profile, "p", false, "Profile frames, and log frame events")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) == 0 {
		log.Fatalf("%v: No source file (-c) given", os.Args[0])
	}

	cfg, err := emulator.LoadConfig(machine)
	if err != nil {
		log.Fatal(err)
	}
	cfg.Verbose = cfg.Verbose || verbose
	cfg.Debug = cfg.Debug || debug
	cfg.Profile = cfg.Profile || profile

	emu, err := emulator.NewEmulator(cfg)
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if emu.Profile != nil {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		emu.SetLogger(logger)
	}

	inf, err := os.Open(compile)
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}
	err = emu.Assemble(inf)
	inf.Close()
	if err != nil {
		log.Fatalf("%v: %v", compile, err)
	}

	if len(binary) != 0 {
		err = os.WriteFile(binary, emu.Program.Binary(), 0o644)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
		return
	}

	emu.State.Stdin = os.Stdin
	emu.State.Stdout = os.Stdout
	emu.State.Stderr = os.Stderr

	err = emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err = emu.Run(ctx)
	cancel()
	_ = logger.Sync()

	if emu.Profile != nil {
		_ = emu.Profile.Report(os.Stderr)
	}

	if err != nil {
		var fault *cpu.ErrFault
		if errors.As(err, &fault) {
			_ = fault.Report(os.Stderr)
		}
		log.Fatal(err)
	}

	codes := emu.ExitCodes()
	os.Exit(int(codes[0]))
}
