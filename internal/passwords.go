package internal

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/storekit"
)

// LoadPasswordsFromFile loads passwords from a file, one per line. Blank
// lines are skipped; passwords themselves are not trimmed beyond the line
// ending so leading/trailing spaces inside a password survive a round trip
// through the shell.
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line != "" {
			passwords = append(passwords, line)
		}
	}
	return passwords, scanner.Err()
}

// CollectPasswords merges a comma-separated list, an optional password file,
// and config-file defaults into one deduplicated candidate list, preserving
// first-seen order.
func CollectPasswords(passwordList, passwordFile string, defaults []string) ([]string, error) {
	var all []string
	all = append(all, defaults...)
	if passwordList != "" {
		all = append(all, strings.Split(passwordList, ",")...)
	}
	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		all = append(all, filePasswords...)
	}

	seen := make(map[string]bool, len(all))
	unique := make([]string, 0, len(all))
	for _, pwd := range all {
		if !seen[pwd] {
			seen[pwd] = true
			unique = append(unique, pwd)
		}
	}
	return unique, nil
}

// ListPassphrase adapts a password candidate list to the loader's single
// acquire-per-item contract: each prompt consumes the next candidate, and a
// drained list reports cancellation so encrypted content fails cleanly
// instead of prompting.
func ListPassphrase(passwords []string) storekit.PassphraseFunc {
	remaining := passwords
	return func(string) ([]byte, error) {
		if len(remaining) == 0 {
			return nil, storekit.ErrPassphraseCancelled
		}
		next := remaining[0]
		remaining = remaining[1:]
		return []byte(next), nil
	}
}
