package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// SerialParams holds the serial link parameters carried in the command
// table document.
type SerialParams struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// Table is the static command table of the dispenser: motor movement
// commands keyed by motor, direction and action, the named load-function
// commands, the barcode length and the serial link parameters.
//
// A Table is immutable after load.
type Table struct {
	serial     SerialParams
	motors     map[Motor]map[Direction]map[Action]Command
	functions  map[Function]Command
	barcodeLen int
}

// tableDoc mirrors the on-disk JSON layout of the command table
// (historically the psdCommands file).
type tableDoc struct {
	Com struct {
		Port    string  `json:"port"`
		Baud    int     `json:"baud"`
		Timeout float64 `json:"timeout"` // seconds
	} `json:"com"`
	M1         motorDoc `json:"m1"`
	M2         motorDoc `json:"m2"`
	LoadCmds   loadDoc  `json:"loadcmds"`
	BarcodeLen int      `json:"barcodelen"`
}

type motorDoc struct {
	Forward directionDoc `json:"forward"`
	Reverse directionDoc `json:"reverse"`
}

type directionDoc struct {
	MoveShort Command `json:"moveshort"`
	MoveLong  Command `json:"movelong"`
}

type loadDoc struct {
	Status     Command `json:"status"`
	Stop       Command `json:"stop"`
	FindNeedle Command `json:"findneedle"`
	Go         Command `json:"go"`
}

// LoadTable reads and parses the command table document at path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("command: open command table: %w", err)
	}
	defer f.Close()

	tbl, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("command: parse command table %s: %w", path, err)
	}

	return tbl, nil
}

// ParseTable parses a command table document from r and validates it.
//
// Every command in the document must be non-empty and terminator-free,
// the baud rate and barcode length must be positive, and the read timeout
// must not be negative.
func ParseTable(r io.Reader) (*Table, error) {
	var doc tableDoc

	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	tbl := &Table{
		serial: SerialParams{
			Port:        doc.Com.Port,
			Baud:        doc.Com.Baud,
			ReadTimeout: time.Duration(doc.Com.Timeout * float64(time.Second)),
		},
		motors: map[Motor]map[Direction]map[Action]Command{
			M1: motorCommands(doc.M1),
			M2: motorCommands(doc.M2),
		},
		functions: map[Function]Command{
			Status:     doc.LoadCmds.Status,
			Stop:       doc.LoadCmds.Stop,
			FindNeedle: doc.LoadCmds.FindNeedle,
			Go:         doc.LoadCmds.Go,
		},
		barcodeLen: doc.BarcodeLen,
	}

	if err := tbl.validate(); err != nil {
		return nil, err
	}

	return tbl, nil
}

func motorCommands(m motorDoc) map[Direction]map[Action]Command {
	return map[Direction]map[Action]Command{
		Forward: {
			MoveShort: m.Forward.MoveShort,
			MoveLong:  m.Forward.MoveLong,
		},
		Reverse: {
			MoveShort: m.Reverse.MoveShort,
			MoveLong:  m.Reverse.MoveLong,
		},
	}
}

func (t *Table) validate() error {
	if t.serial.Port == "" {
		return errors.New("command: serial port is empty")
	}

	if t.serial.Baud <= 0 {
		return fmt.Errorf("command: invalid baud rate %d", t.serial.Baud)
	}

	if t.serial.ReadTimeout < 0 {
		return fmt.Errorf("command: negative read timeout %v", t.serial.ReadTimeout)
	}

	if t.barcodeLen <= 0 {
		return fmt.Errorf("command: invalid barcode length %d", t.barcodeLen)
	}

	for motor, directions := range t.motors {
		for dir, actions := range directions {
			for action, cmd := range actions {
				if err := cmd.Validate(); err != nil {
					return fmt.Errorf("command: %s/%s/%s: %w", motor, dir, action, err)
				}
			}
		}
	}

	for fn, cmd := range t.functions {
		if err := cmd.Validate(); err != nil {
			return fmt.Errorf("command: loadcmds/%s: %w", fn, err)
		}
	}

	return nil
}

// Motor returns the command for the given motor, direction and action.
func (t *Table) Motor(m Motor, d Direction, a Action) (Command, error) {
	directions, ok := t.motors[m]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownMotor, m)
	}

	actions, ok := directions[d]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownDirection, d)
	}

	cmd, ok := actions[a]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownAction, a)
	}

	return cmd, nil
}

// Function returns the command for the given load function.
func (t *Table) Function(f Function) (Command, error) {
	cmd, ok := t.functions[f]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownFunction, f)
	}

	return cmd, nil
}

// Serial returns the serial link parameters of the table.
func (t *Table) Serial() SerialParams { return t.serial }

// BarcodeLength returns the fixed length of scanner-entered identifiers.
func (t *Table) BarcodeLength() int { return t.barcodeLen }
