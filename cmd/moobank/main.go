package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"moobank/internal/amqp"
	"moobank/internal/cli"
	"moobank/internal/config"
	"moobank/internal/core"
	"moobank/internal/ledger"
	"moobank/internal/log"
	"moobank/internal/storage"
)

const dateFormat = "2006-01-02"

func main() {
	logger := cli.Setup(log.ComponentCLI)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "add-transaction":
		err = addTransaction(ctx, repo, os.Args[2:])
	case "add-rule":
		err = addRule(ctx, repo, os.Args[2:])
	case "add-recurring":
		err = addRecurring(ctx, repo, os.Args[2:])
	case "link-tags":
		err = linkTags(ctx, repo, os.Args[2:])
	case "reprocess":
		err = reprocess(ctx, repo, cfg, os.Args[2:])
	case "tag-report":
		err = tagReport(ctx, repo, os.Args[2:])
	case "trend-report":
		err = trendReport(ctx, repo, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: moobank <command> [flags]

commands:
  add-transaction  record a transaction for an account
  add-rule         create a categorization rule
  add-recurring    create a recurring transaction definition
  link-tags        make one tag a child of another
  reprocess        run categorization rules over an account
  tag-report       print per-tag totals for an account
  trend-report     print monthly income/expense totals for an account`)
}

func addTransaction(ctx context.Context, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("add-transaction", flag.ExitOnError)
	account := fs.String("account", "", "account id")
	amount := fs.String("amount", "", "signed decimal amount, negative for debits")
	description := fs.String("description", "", "transaction description")
	date := fs.String("date", "", "transaction date (YYYY-MM-DD, default today)")
	exclude := fs.Bool("exclude", false, "exclude from reporting")
	fs.Parse(args)

	if *account == "" || *amount == "" {
		return fmt.Errorf("account and amount are required")
	}

	cents, err := core.ParseAmountToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", *amount, err)
	}

	when := time.Now()
	if *date != "" {
		if when, err = time.Parse(dateFormat, *date); err != nil {
			return fmt.Errorf("parse date %q: %w", *date, err)
		}
	}

	transaction := core.NewTransaction(*account, core.Money{Cents: cents}, *description, when)
	transaction.ExcludeFromReporting = *exclude
	if err := repo.AddTransaction(ctx, transaction); err != nil {
		return err
	}

	fmt.Printf("created transaction %s (%s)\n", transaction.ID, transaction.Amount)
	return nil
}

func addRule(ctx context.Context, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("add-rule", flag.ExitOnError)
	account := fs.String("account", "", "account id")
	contains := fs.String("contains", "", "case-insensitive substring pattern")
	description := fs.String("description", "", "notes text applied on match")
	tags := fs.String("tags", "", "comma-separated tag names to apply on match")
	fs.Parse(args)

	if *account == "" || *contains == "" {
		return fmt.Errorf("account and contains are required")
	}

	rule := core.Rule{
		ID:          uuid.NewString(),
		AccountID:   *account,
		Contains:    *contains,
		Description: *description,
	}

	for _, name := range strings.Split(*tags, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := ensureTag(ctx, repo, name)
		if err != nil {
			return err
		}
		rule.Tags = append(rule.Tags, tag)
	}

	if err := repo.AddRule(ctx, rule); err != nil {
		return err
	}

	fmt.Printf("created rule %s matching %q with %d tag(s)\n", rule.ID, rule.Contains, len(rule.Tags))
	return nil
}

func ensureTag(ctx context.Context, repo *storage.SQLiteRepository, name string) (core.Tag, error) {
	existing, err := repo.TagByName(ctx, name)
	if err != nil {
		return core.Tag{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	tag := core.Tag{ID: uuid.NewString(), Name: name}
	if err := repo.UpsertTag(ctx, tag); err != nil {
		return core.Tag{}, err
	}
	return tag, nil
}

func addRecurring(ctx context.Context, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("add-recurring", flag.ExitOnError)
	account := fs.String("account", "", "virtual account id")
	amount := fs.String("amount", "", "signed decimal amount")
	description := fs.String("description", "", "transaction description")
	frequency := fs.String("frequency", "monthly", "daily|weekly|fortnightly|monthly|yearly")
	nextRun := fs.String("next-run", "", "first occurrence date (YYYY-MM-DD)")
	fs.Parse(args)

	if *account == "" || *amount == "" || *nextRun == "" {
		return fmt.Errorf("account, amount and next-run are required")
	}

	cents, err := core.ParseAmountToCents(*amount)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", *amount, err)
	}
	next, err := time.Parse(dateFormat, *nextRun)
	if err != nil {
		return fmt.Errorf("parse next-run %q: %w", *nextRun, err)
	}

	rt := core.RecurringTransaction{
		ID:          uuid.NewString(),
		AccountID:   *account,
		Amount:      core.Money{Cents: cents},
		Description: *description,
		Every:       core.Frequency(*frequency),
		NextRun:     next,
	}
	if err := repo.AddRecurring(ctx, rt); err != nil {
		return err
	}

	fmt.Printf("created recurring transaction %s (%s %s)\n", rt.ID, rt.Every, rt.NextRun.Format(dateFormat))
	return nil
}

func linkTags(ctx context.Context, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("link-tags", flag.ExitOnError)
	parent := fs.String("parent", "", "parent tag name")
	child := fs.String("child", "", "child tag name")
	fs.Parse(args)

	if *parent == "" || *child == "" {
		return fmt.Errorf("parent and child are required")
	}

	parentTag, err := ensureTag(ctx, repo, *parent)
	if err != nil {
		return err
	}
	childTag, err := ensureTag(ctx, repo, *child)
	if err != nil {
		return err
	}

	if err := repo.AddTagRelationship(ctx, parentTag.ID, childTag.ID); err != nil {
		return err
	}

	fmt.Printf("linked %s under %s\n", childTag.Name, parentTag.Name)
	return nil
}

func reprocess(ctx context.Context, repo *storage.SQLiteRepository, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("reprocess", flag.ExitOnError)
	account := fs.String("account", "", "account id")
	local := fs.Bool("local", false, "run rules in-process instead of queueing for the rules-worker")
	fs.Parse(args)

	if *account == "" {
		return fmt.Errorf("account is required")
	}

	if *local {
		applicator := ledger.NewRuleApplicator(repo, repo, repo, cfg.MatchWorkers)
		changed, err := applicator.ReprocessAccount(ctx, *account)
		if err != nil {
			return err
		}
		fmt.Printf("reprocessed account %s: %d transaction(s) changed\n", *account, changed)
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	if err := client.PublishRuleReprocess(ctx, *account); err != nil {
		return err
	}
	fmt.Printf("queued reprocess request for account %s\n", *account)
	return nil
}

func tagReport(ctx context.Context, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("tag-report", flag.ExitOnError)
	account := fs.String("account", "", "account id")
	start := fs.String("start", "", "start date (YYYY-MM-DD, empty for all history)")
	end := fs.String("end", "", "end date (YYYY-MM-DD, inclusive)")
	txType := fs.String("type", string(core.Debit), "debit|credit|both")
	parent := fs.String("parent", "", "scope to the children of this tag id")
	fs.Parse(args)

	if *account == "" {
		return fmt.Errorf("account is required")
	}

	filter, err := buildFilter(*account, *start, *end)
	if err != nil {
		return err
	}
	if *txType != "both" {
		filter.Type = core.TransactionType(*txType)
	}
	filter.ParentTagID = *parent

	transactions, err := repo.GetTransactions(ctx, *account)
	if err != nil {
		return err
	}
	hierarchy, err := repo.GetTagHierarchy(ctx)
	if err != nil {
		return err
	}

	for _, total := range ledger.AggregateTagTotals(transactions, filter, hierarchy) {
		fmt.Printf("%-30s %12s\n", total.TagName, total.Total)
	}
	return nil
}

func trendReport(ctx context.Context, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("trend-report", flag.ExitOnError)
	account := fs.String("account", "", "account id")
	start := fs.String("start", "", "start date (YYYY-MM-DD, empty for all history)")
	end := fs.String("end", "", "end date (YYYY-MM-DD, inclusive)")
	fs.Parse(args)

	if *account == "" {
		return fmt.Errorf("account is required")
	}

	filter, err := buildFilter(*account, *start, *end)
	if err != nil {
		return err
	}

	transactions, err := repo.GetTransactions(ctx, *account)
	if err != nil {
		return err
	}

	income, expenses := ledger.BucketTrends(transactions, filter)
	fmt.Println("income:")
	for _, point := range income {
		fmt.Printf("  %s %12s\n", point.Month.Format("2006-01"), point.Total)
	}
	fmt.Println("expenses:")
	for _, point := range expenses {
		fmt.Printf("  %s %12s\n", point.Month.Format("2006-01"), point.Total)
	}
	return nil
}

func buildFilter(account, start, end string) (ledger.TransactionFilter, error) {
	filter := ledger.TransactionFilter{AccountID: account}
	var err error
	if start != "" {
		if filter.Start, err = time.Parse(dateFormat, start); err != nil {
			return filter, fmt.Errorf("parse start %q: %w", start, err)
		}
	}
	if end != "" {
		if filter.End, err = time.Parse(dateFormat, end); err != nil {
			return filter, fmt.Errorf("parse end %q: %w", end, err)
		}
	}
	return filter, nil
}
