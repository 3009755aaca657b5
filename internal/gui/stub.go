//go:build !gui

package gui

import (
	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
)

// Run reports ErrUnavailable; rebuild with -tags gui for the window.
func Run(cfg *config.Config, logger *log.Logger) error {
	return ErrUnavailable
}
