package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/marcelsud/webhook-tester/webhook"
	"github.com/marcelsud/webhook-tester/webhook/file"
	"github.com/marcelsud/webhook-tester/webhook/payload"
)

/* validate-batch - Standalone CLI tool to check persisted batch files
 * Usage: go run cmd/validate-batch/main.go [file-or-data-dir]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	target := "data"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	paths, err := batchFiles(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, path := range paths {
		fmt.Printf("Validating batch file: %s\n", path)
		batch, err := file.ReadBatch(path)
		if err == nil {
			err = validate(batch)
		}
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "   ❌ %v\n", err)
			continue
		}
		printSummary(batch)
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n❌ %d of %d batch file(s) invalid\n", failed, len(paths))
		os.Exit(1)
	}
	fmt.Printf("\n✓ All %d batch file(s) are valid!\n", len(paths))
	os.Exit(0)
}

func batchFiles(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{target}, nil
	}
	paths, err := file.List(target)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no batch files in %s", target)
	}
	return paths, nil
}

func validate(batch webhook.Batch) error {
	if len(batch) == 0 {
		return fmt.Errorf("batch is empty")
	}
	for i, r := range batch {
		if r.Timestamp.IsZero() {
			return fmt.Errorf("record %d: missing timestamp", i)
		}
		if r.Method == "" {
			return fmt.Errorf("record %d: missing method", i)
		}
		if r.Path == "" {
			return fmt.Errorf("record %d: missing path", i)
		}
	}
	return nil
}

func printSummary(batch webhook.Batch) {
	methods := map[string]int{}
	anomalies := 0
	for _, r := range batch {
		methods[r.Method]++
		if m, ok := r.Payload.(map[string]any); ok && len(m) == 1 {
			if _, ok := m[payload.AnomalyField]; ok {
				anomalies++
			}
		}
	}
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("   ✓ %d record(s), %s .. %s\n", len(batch),
		batch[0].Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		batch[len(batch)-1].Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	for _, name := range names {
		fmt.Printf("     %-8s %d\n", name, methods[name])
	}
	if anomalies > 0 {
		fmt.Printf("     anomaly payloads: %d\n", anomalies)
	}
}
