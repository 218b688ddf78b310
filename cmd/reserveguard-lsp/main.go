// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"reserveguard/internal/analysis"
	"reserveguard/internal/lsp"
	"reserveguard/internal/rules"
)

const lsName = "reserveguard"

var version = "0.1.0"

func main() {
	rulesPath := flag.String("rules", "", "rule set file; default rules when empty")
	verbose := flag.Int("v", 1, "log verbosity")
	logFile := flag.String("log", "", "log to this file instead of stderr")
	flag.Parse()

	if *logFile != "" {
		commonlog.Configure(*verbose, logFile)
	} else {
		commonlog.Configure(*verbose, nil)
	}
	log := commonlog.GetLogger("reserveguard.lsp")

	rs := rules.Default()
	if *rulesPath != "" {
		var err error
		if rs, err = rules.Load(*rulesPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	engine, err := analysis.New(rs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	h := lsp.NewHandler(engine, version)
	handler := protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		SetTrace:                       h.SetTrace,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentHover:              h.TextDocumentHover,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Infof("starting %s language server %s", lsName, version)

	// editors talk to the server over stdio
	if err := s.RunStdio(); err != nil {
		log.Errorf("server stopped: %s", err)
		os.Exit(1)
	}
}
