package wbtx

import (
	"os"
	"strings"
)

// ShowHelp prints usage information for wb-tx.
func ShowHelp() {
	os.Stdout.WriteString(`wb-tx: wb-point-v1 traffic generator
====================================

Draws one synthetic attempt and sends it to a wandbrain receiver over UDP.

Usage:
  go run ./cmd/wb-tx [options]

Shapes:
  ` + strings.Join(ShapeNames(), ", ") + `

Examples:
  # A clean circle at 100 points per second
  go run ./cmd/wb-tx -shape circle

  # A noisy heart that drifts right, then wait for its score
  go run ./cmd/wb-tx -shape heart -jitter 0.01 -drift-x 0.05 -verify

  # Three seconds of spiral on wand 4
  go run ./cmd/wb-tx -shape spiral -duration 3s -wand 4
`)
}
