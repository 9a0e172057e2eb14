package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"smartswap/cmd/internal/passphrase"
	"smartswap/services/swapd/audit"
	"smartswap/services/swapd/config"
	"smartswap/services/swapd/server"
	"smartswap/services/swapd/storage"
)

var (
	now = time.Now

	stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	stdinIsTerminal  = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	stdin            io.Reader = os.Stdin

	newSecretSource = func() secretSource {
		return passphrase.NewSource("ADMIN_JWT_SECRET", "admin JWT secret", 32)
	}
)

type secretSource interface {
	Get() (string, error)
}

// globals are the flags shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
	backend    string
	path       string
	asJSON     bool
}

type session struct {
	log        *audit.Log
	thresholds audit.Thresholds
	close      func() error
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage() string {
	return `Usage: swap-audit [global flags] <command> [flags]

Global flags:
  -config PATH    swapd configuration file (selects store and thresholds)
  -env-file PATH  dotenv file loaded first (default .env)
  -backend NAME   override storage backend (sqlite, leveldb, bolt, memory)
  -path PATH      override storage path
  -json           force JSON output

Commands:
  entries [-limit N]       list audit entries, newest first
  stats                    summary statistics
  anomalies                run the fee anomaly detector
  export [-o FILE]         write the JSON export snapshot
  parquet -o FILE          write entries as parquet
  clear [-yes]             delete every audit entry
  token [-subject S] [-ttl D] [-scope S]
                           mint an admin token for the swapd audit API`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("swap-audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	var g globals
	fs.StringVar(&g.configPath, "config", "", "swapd configuration file")
	fs.StringVar(&g.envFile, "env-file", ".env", "dotenv file")
	fs.StringVar(&g.backend, "backend", "", "storage backend override")
	fs.StringVar(&g.path, "path", "", "storage path override")
	fs.BoolVar(&g.asJSON, "json", false, "force JSON output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "Error: load %s: %v\n", g.envFile, err)
		return 1
	}
	if !g.asJSON && !stdoutIsTerminal() {
		g.asJSON = true
	}

	switch rest[0] {
	case "entries":
		return withSession(g, stderr, func(s *session) int { return runEntries(s, g, rest[1:], stdout, stderr) })
	case "stats":
		return withSession(g, stderr, func(s *session) int { return runStats(s, g, stdout, stderr) })
	case "anomalies":
		return withSession(g, stderr, func(s *session) int { return runAnomalies(s, g, stdout, stderr) })
	case "export":
		return withSession(g, stderr, func(s *session) int { return runExport(s, rest[1:], stdout, stderr) })
	case "parquet":
		return withSession(g, stderr, func(s *session) int { return runParquet(s, rest[1:], stderr) })
	case "clear":
		return withSession(g, stderr, func(s *session) int { return runClear(s, rest[1:], stdout, stderr) })
	case "token":
		return runToken(g, rest[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func withSession(g globals, stderr io.Writer, fn func(*session) int) int {
	s, err := openSession(g)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()
	return fn(s)
}

func loadConfig(g globals) (config.Config, error) {
	if strings.TrimSpace(g.configPath) == "" {
		return config.Parse(nil, config.WithoutAdmin())
	}
	return config.Load(g.configPath, config.WithoutAdmin())
}

func openSession(g globals) (*session, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	backend, path := cfg.Storage.Backend, cfg.Storage.Path
	if g.backend != "" {
		backend = g.backend
		if g.path == "" && strings.EqualFold(backend, config.BackendMemory) {
			path = ""
		}
	}
	if g.path != "" {
		path = g.path
	}
	db, err := storage.OpenBackend(backend, path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	log, err := audit.New(db, audit.Options{Capacity: cfg.Audit.Capacity, Now: now})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &session{log: log, thresholds: cfg.Audit.Thresholds, close: db.Close}, nil
}

func writeJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return 1
	}
	return 0
}

func runEntries(s *session, g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("entries", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 0, "maximum entries to print (0 = all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	entries := s.log.Entries(context.Background())
	if *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}
	if g.asJSON {
		return writeJSON(stdout, entries)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tWALLET\tCAMPAIGN\tEXPECTED\tACTUAL\tBALANCE\tNFT\tSIGNATURE")
	for _, e := range entries {
		sig := e.Signature()
		if sig == "" {
			sig = "-"
		} else if len(sig) > 12 {
			sig = sig[:12] + "…"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\t%t\t%s\n",
			time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339),
			e.Wallet, e.CampaignID, e.ExpectedFeeBps, e.ActualFeeBps, e.SKRBalance, e.HasSeekerNFT, sig)
	}
	tw.Flush()
	fmt.Fprintf(stdout, "%d entries\n", len(entries))
	return 0
}

func runStats(s *session, g globals, stdout, stderr io.Writer) int {
	summary := s.thresholds.Stats(s.log.Entries(context.Background()))
	if g.asJSON {
		return writeJSON(stdout, summary)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total swaps\t%d\n", summary.TotalSwaps)
	fmt.Fprintf(tw, "Anomalies\t%d\n", summary.AnomalyCount)
	fmt.Fprintf(tw, "Average fee (bps)\t%d\n", summary.AverageFeeBps)
	fmt.Fprintf(tw, "Zero-fee swaps\t%d\n", summary.ZeroFeeCount)
	tw.Flush()
	return 0
}

func runAnomalies(s *session, g globals, stdout, stderr io.Writer) int {
	anomalies := s.thresholds.Detect(s.log.Entries(context.Background()))
	if g.asJSON {
		return writeJSON(stdout, anomalies)
	}
	if len(anomalies) == 0 {
		fmt.Fprintln(stdout, "No anomalies detected.")
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tTYPE\tENTRY\tDESCRIPTION")
	for _, a := range anomalies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", strings.ToUpper(string(a.Severity)), a.Type, a.EntryID, a.Description)
	}
	tw.Flush()
	return 0
}

func runExport(s *session, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	data, err := s.log.Export(context.Background(), s.thresholds)
	if err != nil {
		fmt.Fprintf(stderr, "Error: export: %v\n", err)
		return 1
	}
	if *out == "" {
		if _, err := stdout.Write(append(data, '\n')); err != nil {
			return 1
		}
		return 0
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		fmt.Fprintf(stderr, "Error: write %s: %v\n", *out, err)
		return 1
	}
	fmt.Fprintf(stderr, "Wrote %s\n", *out)
	return 0
}

func runParquet(s *session, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("parquet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "output file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *out == "" {
		fmt.Fprintln(stderr, "Error: parquet requires -o FILE")
		return 1
	}
	f, err := os.OpenFile(*out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := s.thresholds.WriteParquet(f, s.log.Entries(context.Background())); err != nil {
		f.Close()
		fmt.Fprintf(stderr, "Error: parquet: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "Wrote %s\n", *out)
	return 0
}

func runClear(s *session, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	count := len(s.log.Entries(context.Background()))
	if !*yes {
		if !stdinIsTerminal() {
			fmt.Fprintln(stderr, "Error: refusing to clear without -yes when not attached to a terminal")
			return 1
		}
		fmt.Fprintf(stderr, "Delete %d audit entries? Type 'clear' to confirm: ", count)
		var answer string
		fmt.Fscanln(stdin, &answer)
		if strings.TrimSpace(answer) != "clear" {
			fmt.Fprintln(stderr, "Aborted.")
			return 1
		}
	}
	if err := s.log.Clear(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: clear: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Cleared %d entries.\n", count)
	return 0
}

func runToken(g globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		subject string
		scope   string
		ttl     time.Duration
	)
	fs.StringVar(&subject, "subject", "", "token subject (operator name)")
	fs.StringVar(&scope, "scope", server.ScopeAuditRead, "space separated scopes")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(subject) == "" {
		fmt.Fprintln(stderr, "Error: token requires -subject")
		return 1
	}
	if ttl <= 0 || ttl > 24*time.Hour {
		fmt.Fprintln(stderr, "Error: -ttl must be between 0 and 24h")
		return 1
	}
	cfg, err := loadConfig(g)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	secret := cfg.Admin.JWTSecret
	if secret == "" {
		secret, err = newSecretSource().Get()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	issued := now().UTC()
	claims := jwt.MapClaims{
		"sub":   subject,
		"scope": scope,
		"iat":   issued.Unix(),
		"exp":   issued.Add(ttl).Unix(),
	}
	if cfg.Admin.Issuer != "" {
		claims["iss"] = cfg.Admin.Issuer
	}
	if cfg.Admin.Audience != "" {
		claims["aud"] = cfg.Admin.Audience
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(stderr, "Error: sign token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, signed)
	return 0
}
