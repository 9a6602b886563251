package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/biometra/go-psd/command"
	"github.com/biometra/go-psd/dispenser"
)

const consoleHelp = `commands:
  commit <operator> <sample> <sample2> <accession> <accession2>
  edit | clear                     session gate
  status | stop | findneedle | go | reset
  load <label>                     execute a profile
  profiles                         list profile labels
  home|limit|fwd|rvs m1|m2         motor movements
  trace                            dump the protocol trace
  quit`

// runConsole reads operator commands from stdin until EOF, "quit", or ctx
// cancellation. It is the stand-in for the GUI shell: every line maps to
// one controller operation.
func runConsole(ctx context.Context, ctrl *dispenser.Controller) {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println(consoleHelp)

	for {
		fmt.Print("> ")

		select {
		case <-ctx.Done():
			fmt.Println()
			return

		case line, ok := <-lines:
			if !ok {
				return
			}

			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			if fields[0] == "quit" || fields[0] == "exit" {
				return
			}

			if err := dispatch(ctrl, fields); err != nil {
				fmt.Println("error:", err)
			}
		}
	}
}

func dispatch(ctrl *dispenser.Controller, fields []string) error {
	switch fields[0] {
	case "help":
		fmt.Println(consoleHelp)
		return nil

	case "commit":
		if len(fields) != 6 {
			return fmt.Errorf("usage: commit <operator> <sample> <sample2> <accession> <accession2>")
		}

		rec, err := ctrl.Commit(fields[1], fields[2], fields[3], fields[4], fields[5])
		if err != nil {
			return err
		}

		fmt.Printf("session committed: operator=%s sample=%s accession=%s\n", rec.Operator, rec.SampleID, rec.AccessionID)
		return nil

	case "edit":
		ctrl.Gate().Edit()
		return nil

	case "clear":
		ctrl.Gate().Clear()
		return nil

	case "status":
		return ctrl.Status()

	case "stop":
		return ctrl.Stop()

	case "findneedle":
		return ctrl.FindNeedle()

	case "go":
		return ctrl.Go()

	case "reset":
		return ctrl.Reset()

	case "load":
		if len(fields) != 2 {
			return fmt.Errorf("usage: load <label>")
		}
		return ctrl.LoadProfile(fields[1])

	case "profiles":
		for _, label := range ctrl.Profiles().Labels() {
			fmt.Println(label)
		}
		return nil

	case "home", "limit", "fwd", "rvs":
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s m1|m2", fields[0])
		}

		motor, err := parseMotor(fields[1])
		if err != nil {
			return err
		}

		switch fields[0] {
		case "home":
			return ctrl.Home(motor)
		case "limit":
			return ctrl.Limit(motor)
		case "fwd":
			return ctrl.StepForward(motor)
		default:
			return ctrl.StepReverse(motor)
		}

	case "trace":
		for _, rec := range ctrl.Driver().Trace() {
			fmt.Printf("%s %s %s\n", rec.At.Format("15:04:05.000000"), rec.Dir, rec.Payload)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func parseMotor(s string) (command.Motor, error) {
	switch strings.ToLower(s) {
	case "m1":
		return command.M1, nil
	case "m2":
		return command.M2, nil
	default:
		return 0, fmt.Errorf("unknown motor %q", s)
	}
}
