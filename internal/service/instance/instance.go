// Package instance finds other running copies of the monitor binary.
package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mitchellh/go-ps"
)

// Lister returns the process table.
type Lister func() ([]ps.Process, error)

// Guard looks for processes sharing this executable's name.
type Guard struct {
	list Lister
	self int
	name string
}

// New creates a guard for the running executable.
// A nil lister uses the operating system process table.
func New(list Lister) *Guard {
	if list == nil {
		list = ps.Processes
	}

	name, err := os.Executable()
	if err != nil {
		name = os.Args[0]
	}

	return &Guard{
		list: list,
		self: os.Getpid(),
		name: filepath.Base(name),
	}
}

// Others returns the sorted pids of other processes with the same executable name.
// Names are compared case-insensitively so Windows ".exe" variants match.
func (g *Guard) Others() ([]int, error) {
	processes, err := g.list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var pids []int

	for _, p := range processes {
		if p.Pid() == g.self || !strings.EqualFold(p.Executable(), g.name) {
			continue
		}

		pids = append(pids, p.Pid())
	}

	slices.Sort(pids)

	return pids, nil
}
