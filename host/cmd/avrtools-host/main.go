package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"avrtools/config"
	"avrtools/core"
	"avrtools/host/monitor"
	"avrtools/host/repl"
	"avrtools/host/serial"
	"avrtools/mcu"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device of the board console")
	baud    = flag.Int("baud", 9600, "Console baud rate")
	backend = flag.String("backend", "tarm", "Serial backend: tarm (sets line parameters) or tty (raw device as is)")
	simName = flag.String("sim", "", "Simulate a board instead ("+strings.Join(mcu.Names(), ", ")+")")
	load    = flag.String("load", "", "JSON timer config to apply at startup (with -sim)")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	core.SetDebugWriter(func(s string) {
		fmt.Fprintln(os.Stderr, s)
	})
	core.SetDebugEnabled(*verbose)
	core.InitAsyncDebug()

	if *simName != "" {
		os.Exit(runSim(*simName))
	}
	os.Exit(runConsole())
}

// runConsole follows a real board: lines it prints go to stdout, lines
// typed on stdin are sent to it.
func runConsole() int {
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Fprintf(os.Stderr, "Opening %s at %d baud...\n", cfg.Device, cfg.Baud)
	open := serial.Open
	if *backend == "tty" {
		open = serial.OpenTTY
	} else if *backend != "tarm" {
		fmt.Fprintf(os.Stderr, "Error: unknown backend %q\n", *backend)
		return 2
	}
	port, err := open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Stop closes the port; a read blocked in go-tty only returns then.
	mon := monitor.New(port, os.Stdout, "")
	done := make(chan error, 1)
	go func() { done <- mon.Run() }()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := mon.Send(scanner.Text()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
	}
	if err := mon.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "%d lines received\n", mon.Lines())
	}
	return 0
}

// runSim drives a simulated board from an interactive command loop.
func runSim(name string) int {
	v, ok := mcu.Lookup(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown variant %q (have %s)\n", name, strings.Join(mcu.Names(), ", "))
		return 2
	}

	sess, err := repl.NewSession(v, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	console := sess.Console()
	mon := monitor.New(console, os.Stdout, "uart0: ")
	go mon.Run()
	defer mon.Stop()

	if *load != "" {
		data, err := os.ReadFile(*load)
		if err == nil {
			var cfg *config.TimerConfig
			if cfg, err = config.LoadConfig(data); err == nil {
				err = sess.Apply(cfg)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", *load, err)
			return 1
		}
	}

	fmt.Printf("Simulated %s, %d MHz (type 'help' for available commands, 'quit' to exit)\n",
		v.Name, v.CPUHz/1000000)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		err := sess.Execute(scanner.Text())
		if repl.IsQuit(err) {
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return 1
	}
	return 0
}
