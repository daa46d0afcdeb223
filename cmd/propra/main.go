package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"

	"github.com/leijurv/propra_go/config"
	"github.com/leijurv/propra_go/propra"
)

var log = logging.MustGetLogger("propra/cli")

const progName = "propra"

// exitCodeFailure is returned for every failed conversion
const exitCodeFailure = 123

const usageMessage = `Usage: propra --input=FILE [OPTIONS]

Image conversion (format chosen by the .tga / .propra extension):
  --input=FILE --output=FILE [--compression=uncompressed|rle|huffman|auto]

Base-N text encoding:
  --input=FILE --encode-base-32     writes FILE.base-32
  --input=FILE.base-32 --decode-base-32
  --input=FILE --encode-base-n=ALPHABET
                    writes FILE.base-n, first line holds the alphabet
  --input=FILE.base-n --decode-base-n

Other options:
  --config=FILE   YAML configuration
  --debug         verbose logging to standard error
`

type options struct {
	input          string
	output         string
	compression    string
	compressionSet bool
	encodeBase32   bool
	decodeBase32   bool
	encodeBaseN    string
	decodeBaseN    bool
	configPath     string
	debug          bool
}

type nullWriter struct{}

func (n *nullWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

var leveledLogBackend logging.LeveledBackend

func startLogging() {
	backend := logging.NewLogBackend(os.Stderr, progName+": ", 0)
	formatSpec := "%{level:8s} %{module:-20s} | %{message}"
	formatter := logging.MustStringFormatter(formatSpec)
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
	leveledLogBackend = leveled
}

func usageErrorf(detailFmt string, detailArgs ...interface{}) {
	detail := fmt.Sprintf(detailFmt, detailArgs...)
	fmt.Fprintf(os.Stderr, "%s: %s\n%s", progName, detail, usageMessage)
	os.Exit(exitCodeFailure)
}

func exitError(err error) {
	if convErr, ok := propra.IsConvertError(err); ok {
		log.Debugf("failure category %s", convErr.Code)
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", progName, err.Error())
	os.Exit(exitCodeFailure)
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	flags := flag.NewFlagSet(progName, flag.ContinueOnError)
	flags.Usage = func() {}
	flags.SetOutput(&nullWriter{})

	// Usage strings are hardcoded above.
	flags.StringVar(&opts.input, "input", "", "")
	flags.StringVar(&opts.output, "output", "", "")
	flags.StringVar(&opts.compression, "compression", "", "")
	flags.BoolVar(&opts.encodeBase32, "encode-base-32", false, "")
	flags.BoolVar(&opts.decodeBase32, "decode-base-32", false, "")
	flags.StringVar(&opts.encodeBaseN, "encode-base-n", "", "")
	flags.BoolVar(&opts.decodeBaseN, "decode-base-n", false, "")
	flags.StringVar(&opts.configPath, "config", "", "")
	flags.BoolVar(&opts.debug, "debug", false, "")
	flags.BoolVar(&opts.debug, "d", false, "")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", flags.Arg(0))
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "compression" {
			opts.compressionSet = true
		}
	})
	return opts, nil
}

// command picks the requested operation and rejects incompatible flags
func (o *options) command(cfg config.Config) (func() error, error) {
	if o.input == "" {
		return nil, propra.ErrExitCode(propra.ExitCodeSyntaxError, "--input is required")
	}

	var baseModes []string
	if o.encodeBase32 {
		baseModes = append(baseModes, "--encode-base-32")
	}
	if o.decodeBase32 {
		baseModes = append(baseModes, "--decode-base-32")
	}
	if o.encodeBaseN != "" {
		baseModes = append(baseModes, "--encode-base-n")
	}
	if o.decodeBaseN {
		baseModes = append(baseModes, "--decode-base-n")
	}

	if len(baseModes) > 1 {
		return nil, propra.ErrExitCode(propra.ExitCodeSyntaxError,
			"only one of "+strings.Join(baseModes, ", ")+" may be given")
	}
	if len(baseModes) == 1 {
		if o.output != "" || o.compressionSet {
			return nil, propra.ErrExitCode(propra.ExitCodeSyntaxError,
				baseModes[0]+" cannot be combined with --output or --compression")
		}
		return o.baseNCommand(cfg)
	}

	if o.output == "" {
		return nil, propra.ErrExitCode(propra.ExitCodeSyntaxError, "--output is required for image conversion")
	}
	name := cfg.DefaultCompression
	if o.compressionSet {
		name = o.compression
	}
	c, err := propra.ParseCompression(name)
	if err != nil {
		return nil, err
	}
	input, output := o.input, o.output
	opts := propra.Options{BufferSize: cfg.BufferSize}
	return func() error {
		return propra.Convert(input, output, c, opts)
	}, nil
}

func (o *options) baseNCommand(cfg config.Config) (func() error, error) {
	input := o.input
	report := func(path string, err error) error {
		if err == nil {
			log.Infof("wrote %s", path)
		}
		return err
	}

	switch {
	case o.encodeBase32, o.decodeBase32:
		alphabet, err := propra.NewAlphabet(cfg.Base32Alphabet)
		if err != nil {
			return nil, err
		}
		if o.encodeBase32 {
			return func() error { return report(propra.EncodeBase32File(input, alphabet)) }, nil
		}
		return func() error { return report(propra.DecodeBase32File(input, alphabet)) }, nil
	case o.encodeBaseN != "":
		alphabet, err := propra.NewAlphabet(o.encodeBaseN)
		if err != nil {
			return nil, err
		}
		return func() error { return report(propra.EncodeBaseNFile(input, alphabet)) }, nil
	default:
		return func() error { return report(propra.DecodeBaseNFile(input)) }, nil
	}
}

func main() {
	startLogging()

	opts, err := parseFlags(os.Args[1:])
	if err == flag.ErrHelp {
		io.WriteString(os.Stdout, usageMessage)
		os.Exit(0)
	} else if err != nil {
		usageErrorf("%s", err.Error())
	}

	cfg, err := config.LoadConfiguration(opts.configPath)
	if err != nil {
		exitError(err)
	}
	leveledLogBackend.SetLevel(cfg.LogLevel(), "")
	if opts.debug {
		leveledLogBackend.SetLevel(logging.DEBUG, "")
	}

	requestedCommand, err := opts.command(cfg)
	if err != nil {
		if propra.HasExitCode(err, propra.ExitCodeSyntaxError) {
			usageErrorf("%s", err.Error())
		}
		exitError(err)
	}
	if err := requestedCommand(); err != nil {
		exitError(err)
	}
}
