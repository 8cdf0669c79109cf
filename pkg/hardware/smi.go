package hardware

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// SMIQuerier reads GPU state through the nvidia-smi CLI.
type SMIQuerier struct {
	Command string
}

func NewSMIQuerier(command string) *SMIQuerier {
	if command == "" {
		command = "nvidia-smi"
	}
	return &SMIQuerier{Command: command}
}

// Query returns one Unit per GPU. A missing binary or non-zero exit is
// reported as an error; the gate treats that as "no hardware".
func (q *SMIQuerier) Query(ctx context.Context) ([]Unit, error) {
	cmd := exec.CommandContext(ctx, q.Command,
		"--query-gpu=index,temperature.gpu,memory.total,memory.used",
		"--format=csv,noheader,nounits",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("hardware query failed: %v", err)
	}

	return parseSMIOutput(string(out)), nil
}

func parseSMIOutput(out string) []Unit {
	var units []Unit

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}

		fields := make([]int, 4)
		valid := true
		for i := 0; i < 4; i++ {
			n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil {
				valid = false
				break
			}
			fields[i] = n
		}
		if !valid {
			continue
		}

		units = append(units, Unit{
			Index:       fields[0],
			Temperature: fields[1],
			MemoryTotal: fields[2],
			MemoryUsed:  fields[3],
		})
	}

	return units
}
