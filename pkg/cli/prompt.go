package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfirmOverwrite returns an overwrite hook that asks on out and reads the
// answer from in. Anything but "y" or "yes" declines.
func ConfirmOverwrite(in io.Reader, out io.Writer) func(path string) (bool, error) {
	r := bufio.NewReader(in)
	return func(path string) (bool, error) {
		fmt.Fprintf(out, "%s Output file '%s' already exists. Overwrite? [y/N]: ", yellow("?"), path)
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
