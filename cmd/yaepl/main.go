/*
Command yaepl is an interactive sandbox for grammar development: it loads
a grammar description, reads input lines, parses them and pretty-prints
the resulting translation DAG.

    yaepl -grammar expr.g [-trace Info] [-lookahead 1] [-all] [-recover]

Within the REPL, lines are tokenized against the grammar's terminals
(names or character literals) and parsed. Commands:

    :dot      print the last translation DAG in GraphViz format
    :dump     print the grammar rules
    <ctrl>D   quit

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/earley-go/yaep"
	"github.com/earley-go/yaep/earley"
	"github.com/earley-go/yaep/forest"
	"github.com/earley-go/yaep/syntax"
)

func tracer() tracing.Trace {
	return tracing.Select("yaep.repl")
}

func main() {
	gtrace.SyntaxTracer = gologadapter.New()
	grammarFile := flag.String("grammar", "", "Grammar description file")
	tlevel := flag.String("trace", "Error", "Trace level [Debug|Info|Error]")
	lookahead := flag.Int("lookahead", 1, "Lookahead level 0..2")
	all := flag.Bool("all", false, "Build all parses as a packed DAG")
	recovery := flag.Bool("recover", false, "Enable error recovery")
	flag.Parse()
	tracing.Select("yaep").SetTraceLevel(traceLevel(*tlevel))
	tracing.Select("yaep.earley").SetTraceLevel(traceLevel(*tlevel))
	tracing.Select("yaep.grammar").SetTraceLevel(traceLevel(*tlevel))
	tracing.Select("yaep.forest").SetTraceLevel(traceLevel(*tlevel))

	if *grammarFile == "" {
		pterm.Error.Println("no grammar given; use -grammar <file>")
		os.Exit(1)
	}
	src, err := ioutil.ReadFile(*grammarFile)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	g := yaep.NewGrammar(*grammarFile)
	g.Options.LookaheadLevel = *lookahead
	g.Options.OneParse = !*all
	g.Options.ErrorRecovery = *recovery
	g.OnSyntaxError = func(errPos int, errTok yaep.Token, firstIgnored, firstRecovered int) {
		if firstIgnored < 0 {
			pterm.Warning.Printf("syntax error at token %d\n", errPos)
			return
		}
		pterm.Warning.Printf("syntax error at token %d, ignored %d..%d\n",
			errPos, firstIgnored, firstRecovered-1)
	}
	if err := g.LoadDescription(string(src)); err != nil {
		pterm.Error.Printf("%s: %s\n", g.ErrCode(), g.ErrMessage())
		os.Exit(1)
	}
	pterm.Info.Println("Welcome to YAEPL")
	pterm.Info.Printf("grammar %q loaded, %d rules\n", *grammarFile, len(g.Tables().Rules()))

	repl, err := readline.New("yaepl> ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	defer repl.Close()
	var last *forest.Node
	pterm.Info.Println("Quit with <ctrl>D")
	for {
		line, err := repl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == ":dot":
			if last == nil {
				pterm.Warning.Println("nothing parsed yet")
				continue
			}
			forest.ToGraphViz(last, os.Stdout)
		case line == ":dump":
			for _, r := range g.Tables().Rules() {
				fmt.Println(r)
			}
		default:
			codes, err := syntax.TokenizeLine(g.Tables(), line)
			if err != nil {
				pterm.Error.Println(err.Error())
				continue
			}
			root, ambiguous, err := g.Parse(earley.TokensFromCodes(codes))
			if err != nil {
				pterm.Error.Printf("%s: %s\n", g.ErrCode(), g.ErrMessage())
				continue
			}
			last = root
			if ambiguous {
				pterm.Warning.Println("input is ambiguous")
			}
			pterm.Success.Println(root.String())
		}
	}
}

func traceLevel(l string) tracing.TraceLevel {
	switch strings.ToLower(l) {
	case "debug":
		return tracing.LevelDebug
	case "info":
		return tracing.LevelInfo
	}
	return tracing.LevelError
}
