// Command evaluate checks a site specification file against a scanner model
// without a database.
//
//	evaluate -site room.yaml -scanner "NeuViz ACE" [-policy policy.yaml] [-json]
//
// Exit status is 0 on PASS, 1 on FAIL and 2 on invalid input.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/database"

	"gopkg.in/yaml.v3"
)

const (
	exitPass    = 0
	exitFail    = 1
	exitInvalid = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		sitePath    = fs.String("site", "", "Path to the site specification YAML")
		scannerName = fs.String("scanner", "", "Reference scanner model name")
		scannerPath = fs.String("scanner-file", "", "Path to a scanner model YAML (instead of -scanner)")
		policyPath  = fs.String("policy", "", "Path to an evaluation policy YAML")
		asJSON      = fs.Bool("json", false, "Print the assessment as JSON")
		list        = fs.Bool("list", false, "List the reference scanner models and exit")
	)
	if err := fs.Parse(args); err != nil {
		return exitInvalid
	}

	if *list {
		for _, s := range database.DefaultScanners() {
			fmt.Fprintf(stdout, "%s\t%s\n", s.Name, s.Manufacturer)
		}
		return exitPass
	}

	if *sitePath == "" || (*scannerName == "") == (*scannerPath == "") {
		fmt.Fprintln(stderr, "usage: evaluate -site FILE (-scanner NAME | -scanner-file FILE) [-policy FILE] [-json]")
		return exitInvalid
	}

	policy := conformity.DefaultPolicy()
	if *policyPath != "" {
		p, err := conformity.LoadPolicy(*policyPath)
		if err != nil {
			fmt.Fprintf(stderr, "policy: %v\n", err)
			return exitInvalid
		}
		policy = p
	}
	catalog, err := conformity.NewCatalog(policy)
	if err != nil {
		fmt.Fprintf(stderr, "policy: %v\n", err)
		return exitInvalid
	}

	var spec conformity.SiteSpec
	if err := readYAML(*sitePath, &spec); err != nil {
		fmt.Fprintf(stderr, "site: %v\n", err)
		return exitInvalid
	}

	scanner, err := resolveScanner(*scannerName, *scannerPath)
	if err != nil {
		fmt.Fprintf(stderr, "scanner: %v\n", err)
		return exitInvalid
	}

	a, err := catalog.Assess(spec, scanner)
	if err != nil {
		var verr *conformity.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(stderr, "site: %s %s\n", f.Field, f.Reason)
			}
		} else {
			fmt.Fprintf(stderr, "site: %v\n", err)
		}
		return exitInvalid
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			fmt.Fprintf(stderr, "encode: %v\n", err)
			return exitInvalid
		}
	} else {
		printAssessment(stdout, scanner, a)
	}

	if !a.Summary.Pass {
		return exitFail
	}
	return exitPass
}

func readYAML(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func resolveScanner(name, path string) (conformity.Scanner, error) {
	if path != "" {
		var s conformity.Scanner
		if err := readYAML(path, &s); err != nil {
			return conformity.Scanner{}, err
		}
		if strings.TrimSpace(s.Name) == "" {
			s.Name = path
		}
		return s, nil
	}

	var known []string
	for _, m := range database.DefaultScanners() {
		if strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m.Requirements(), nil
		}
		known = append(known, m.Name)
	}
	return conformity.Scanner{}, fmt.Errorf("unknown model %q (known: %s)", name, strings.Join(known, ", "))
}

func printAssessment(w io.Writer, scanner conformity.Scanner, a conformity.Assessment) {
	fmt.Fprintf(w, "Scanner: %s\n\n", scanner.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSEVERITY\tOUTCOME\tDETAIL")
	for _, r := range a.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Label, r.Severity, strings.ToUpper(r.Outcome()), r.Detail)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%s\n", a.Summary.Narrative)
	fmt.Fprintf(w, "\nCritical issues: %d, estimated remediation cost: %.0f\n",
		a.Summary.CriticalIssues, a.Summary.EstimatedCost)
}
