package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/sealpost/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "seal":
		runSeal(ctx, os.Args[2:])
	case "open":
		runOpen(ctx, os.Args[2:])
	case "add":
		runAdd(ctx, os.Args[2:])
	case "show":
		runShow(ctx, os.Args[2:])
	case "ls":
		runLs(ctx, os.Args[2:])
	case "edit":
		runEdit(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "rotate":
		runRotate(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positional ones. Everything after "--" is
// positional.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...)
		}
		if len(rest) == 0 {
			return positional
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func requireArgs(command string, args []string, n int, usage string) {
	if len(args) != n {
		fmt.Fprintf(os.Stderr, "Usage: sealpost %s %s\n", command, usage)
		os.Exit(1)
	}
}

func postFlags(fs *flag.FlagSet) *cmd.PostFlags {
	f := &cmd.PostFlags{}
	optional := func(dst **string) func(string) error {
		return func(v string) error {
			*dst = &v
			return nil
		}
	}
	fs.Func("title", "Post title", optional(&f.Title))
	fs.Func("body", "Post body", optional(&f.Body))
	fs.StringVar(&f.BodyFile, "body-file", "", "Read the body from a file in the current directory")
	fs.Func("author", "Post author", optional(&f.Author))
	fs.Func("tag", "Post tag (repeatable)", func(v string) error {
		f.Tags = append(f.Tags, v)
		return nil
	})
	return f
}

func runInit(_ context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Init(cmd.Load())
}

func runSeal(_ context.Context, args []string) {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	rest := parseArgs(fs, args)
	requireArgs("seal", rest, 1, "[--json] <text>")

	cmd.Seal(cmd.Load(), rest[0], *asJSON)
}

func runOpen(_ context.Context, args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs("open", rest, 2, "<envelope> <nonce>")

	cmd.Open(cmd.Load(), rest[0], rest[1])
}

func runAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	f := postFlags(fs)
	rest := parseArgs(fs, args)
	requireArgs("add", rest, 0, "--title <title> (--body <body> | --body-file <file>) [--author <name>] [--tag <tag>...]")

	cmd.Add(ctx, cmd.Load(), *f)
}

func runShow(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	rest := parseArgs(fs, args)
	requireArgs("show", rest, 1, "[--json] <id>")

	cmd.Show(ctx, cmd.Load(), rest[0], *asJSON)
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.List(ctx, cmd.Load())
}

func runEdit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	f := postFlags(fs)
	rest := parseArgs(fs, args)
	requireArgs("edit", rest, 1, "<id> [--title <title>] [--body <body> | --body-file <file>] [--author <name>] [--tag <tag>...]")

	cmd.Edit(ctx, cmd.Load(), rest[0], *f)
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	rest := parseArgs(fs, args)

	cmd.Remove(ctx, cmd.Load(), rest)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs("export", rest, 1, "<file>")

	cmd.Export(ctx, cmd.Load(), rest[0])
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs("diff", rest, 2, "<id> <file>")

	cmd.Diff(ctx, cmd.Load(), rest[0], rest[1])
}

func runRotate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rotate", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Rotate(ctx, cmd.Load())
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Passwd(ctx, cmd.Load())
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Status(ctx, cmd.Load())
}

func runCompact(_ context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseArgs(fs, args)

	cmd.Compact(cmd.Load())
}

func runKeyring(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sealpost keyring <save|delete|status>")
		os.Exit(1)
	}

	rt := cmd.Load()
	switch args[0] {
	case "save":
		cmd.KeyringSave(rt)
	case "delete":
		cmd.KeyringDelete(rt)
	case "status":
		cmd.KeyringStatus(rt)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sealpost completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("sealpost - encrypted posts with authenticated envelopes")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sealpost <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a store (.sealpost by default)")
	fmt.Println("  seal        Encrypt text with SEALPOST_PASSPHRASE and SEALPOST_SALT")
	fmt.Println("  open        Decrypt an envelope with SEALPOST_PASSPHRASE and SEALPOST_SALT")
	fmt.Println("  add         Add a post")
	fmt.Println("  show        Show a decrypted post")
	fmt.Println("  ls          List posts")
	fmt.Println("  edit        Change fields of a post")
	fmt.Println("  rm          Remove posts")
	fmt.Println("  export      Export decrypted posts as JSON")
	fmt.Println("  diff        Compare a post body with a local file")
	fmt.Println("  rotate      Re-seal every post under a key from a new salt")
	fmt.Println("  passwd      Change the store passphrase")
	fmt.Println("  status      Show store status")
	fmt.Println("  compact     Compact the store to reclaim disk space")
	fmt.Println("  keyring     Manage the passphrase in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sealpost init")
	fmt.Println("  sealpost add --title \"Hello\" --body-file post.md")
	fmt.Println("  sealpost ls")
	fmt.Println("  sealpost rotate")
	fmt.Println()
	fmt.Println("Use 'sealpost help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("sealpost init")
		fmt.Println()
		fmt.Println("Creates a store at SEALPOST_DB (default .sealpost).")
		fmt.Println("Uses SEALPOST_PASSPHRASE if set, otherwise prompts for a passphrase.")
		fmt.Println("SEALPOST_SALT, if set, becomes the initial salt; otherwise a random one is used.")
		fmt.Println("The scrypt cost is taken from SEALPOST_KDF_N, _R and _P.")
	case "seal":
		fmt.Println("sealpost seal [--json] <text>")
		fmt.Println()
		fmt.Println("Encrypts text with SEALPOST_PASSPHRASE and SEALPOST_SALT without a store.")
		fmt.Println("Prints the nonce and envelope; both are needed to decrypt.")
		fmt.Println("Outside production, missing secrets are replaced with one-time random values.")
	case "open":
		fmt.Println("sealpost open <envelope> <nonce>")
		fmt.Println()
		fmt.Println("Decrypts an envelope produced by 'sealpost seal'.")
		fmt.Println("Tampered envelopes and wrong secrets are reported as IntegrityError.")
	case "add":
		fmt.Println("sealpost add --title <title> (--body <body> | --body-file <file>) [--author <name>] [--tag <tag>...]")
		fmt.Println()
		fmt.Println("Seals title and body and stores a new post. Author and tags stay plaintext.")
	case "show":
		fmt.Println("sealpost show [--json] <id>")
		fmt.Println()
		fmt.Println("Prints a decrypted post. Fields that cannot be decrypted are shown as")
		fmt.Println("\"[decryption failed]\".")
	case "ls":
		fmt.Println("sealpost ls")
		fmt.Println()
		fmt.Println("Lists posts with their decrypted titles.")
	case "edit":
		fmt.Println("sealpost edit <id> [--title <title>] [--body <body> | --body-file <file>] [--author <name>] [--tag <tag>...]")
		fmt.Println()
		fmt.Println("Changes the given fields. Changed fields are sealed with a fresh nonce.")
	case "rm":
		fmt.Println("sealpost rm <id> [id...]")
		fmt.Println()
		fmt.Println("Removes posts and compacts the store.")
	case "export":
		fmt.Println("sealpost export <file>")
		fmt.Println()
		fmt.Println("Writes every decrypted post as JSON. The file must be inside the")
		fmt.Println("current directory and is created with mode 0600.")
	case "diff":
		fmt.Println("sealpost diff <id> <file>")
		fmt.Println()
		fmt.Println("Shows a unified diff from the stored post body to a local file.")
	case "rotate":
		fmt.Println("sealpost rotate")
		fmt.Println()
		fmt.Println("Derives a new key from the same passphrase and a new random salt,")
		fmt.Println("re-seals every post and prints the new salt.")
	case "passwd":
		fmt.Println("sealpost passwd")
		fmt.Println()
		fmt.Println("Changes the store passphrase and re-seals every post.")
	case "status":
		fmt.Println("sealpost status")
		fmt.Println()
		fmt.Println("Shows store metadata, scrypt parameters, post count and git hygiene.")
		fmt.Println("Does not require a passphrase.")
	case "compact":
		fmt.Println("sealpost compact")
		fmt.Println()
		fmt.Println("Compacts the store file to reclaim unused disk space.")
		fmt.Println("Does not require a passphrase.")
	case "keyring":
		fmt.Println("sealpost keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Stores the passphrase in the OS keyring so commands stop prompting.")
	case "completion":
		fmt.Println("sealpost completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(sealpost completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(sealpost completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  sealpost completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
