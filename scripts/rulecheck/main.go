// Command rulecheck replays a fixture of time entry payloads against the
// validation endpoint and compares each verdict with the outcome the legacy
// system produced. It is the acceptance gate for rule-engine parity during
// the migration.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type fixtureCase struct {
	Name          string          `json:"name"`
	Entry         json.RawMessage `json:"entry"`
	ExpectValid   bool            `json:"expect_valid"`
	ExpectedTypes []string        `json:"expected_types,omitempty"`
}

type fixture struct {
	Cases []fixtureCase `json:"cases"`
}

type verdict struct {
	Data struct {
		Validation struct {
			Valid     bool `json:"valid"`
			Conflicts []struct {
				Type string `json:"type"`
			} `json:"conflicts"`
		} `json:"validation"`
	} `json:"data"`
}

type outcome struct {
	Case     fixtureCase
	Valid    bool
	Types    []string
	Err      error
	Duration time.Duration
}

func main() {
	var (
		base        string
		fixturePath string
		token       string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&fixturePath, "fixture", filepath.Join("scripts", "rulecheck", "cases.json"), "Path to JSON fixture file")
	flag.StringVar(&token, "token", os.Getenv("RULECHECK_TOKEN"), "Bearer token for the validate endpoint")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	cases, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var mismatches int

	outcomes := make([]outcome, 0, len(cases))
	for _, c := range cases {
		out := runCase(client, base, token, c)
		if out.Err != nil || !matches(out) {
			mismatches++
		}
		outcomes = append(outcomes, out)
	}

	printReport(outcomes)

	fmt.Printf("Cases: %d, Mismatches: %d\n", len(outcomes), mismatches)
	if mismatches > 0 {
		os.Exit(1)
	}
}

func loadFixture(path string) ([]fixtureCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("no cases defined in %s", path)
	}
	return f.Cases, nil
}

func runCase(client *http.Client, base, token string, c fixtureCase) outcome {
	out := outcome{Case: c}

	url := strings.TrimRight(base, "/") + "/api/v1/time-entries/validate"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(c.Entry))
	if err != nil {
		out.Err = err
		return out
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	out.Duration = time.Since(start)
	if err != nil {
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		out.Err = fmt.Errorf("read response: %w", err)
		return out
	}
	if resp.StatusCode != http.StatusOK {
		out.Err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return out
	}

	var v verdict
	if err := json.Unmarshal(body, &v); err != nil {
		out.Err = fmt.Errorf("decode verdict: %w", err)
		return out
	}

	out.Valid = v.Data.Validation.Valid
	for _, c := range v.Data.Validation.Conflicts {
		out.Types = append(out.Types, c.Type)
	}
	return out
}

func matches(out outcome) bool {
	if out.Valid != out.Case.ExpectValid {
		return false
	}
	for _, expected := range out.Case.ExpectedTypes {
		found := false
		for _, got := range out.Types {
			if got == expected {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func printReport(outcomes []outcome) {
	fmt.Println("Rule Parity Report")
	fmt.Println("==================")
	for _, out := range outcomes {
		status := "OK"
		if out.Err != nil {
			status = "ERROR"
		} else if !matches(out) {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s (%s)\n", status, out.Case.Name, out.Duration)
		if out.Err != nil {
			fmt.Printf("  Error: %v\n", out.Err)
			continue
		}
		fmt.Printf("  Expected valid: %t | Got valid: %t\n", out.Case.ExpectValid, out.Valid)
		if len(out.Case.ExpectedTypes) > 0 || len(out.Types) > 0 {
			fmt.Printf("  Expected types: %s | Got types: %s\n", strings.Join(out.Case.ExpectedTypes, ","), strings.Join(out.Types, ","))
		}
	}
}
