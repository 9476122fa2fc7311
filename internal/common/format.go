package common

import (
	"fmt"
	"strings"
)

const DefaultWidth = 80

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", width))
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintFields prints label/value pairs as a box-drawn list
func PrintFields(title string, fields [][2]string) {
	fmt.Printf("\n┌─ %s\n", title)
	for i, f := range fields {
		fmt.Printf("%s %-12s: %s\n", BoxPrefix(i == len(fields)-1), f[0], f[1])
	}
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// ShortHash abbreviates a transaction hash for display
func ShortHash(hash string) string {
	if hash == "" {
		return "none"
	}
	if len(hash) > 14 {
		return hash[:8] + "..." + hash[len(hash)-4:]
	}
	return hash
}
