package ir

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for the function model
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the listing of the given contracts
func Print(contracts ...*Contract) string {
	p := NewPrinter()
	for i, c := range contracts {
		if i > 0 {
			p.writeLine("")
		}
		p.printContract(c)
	}
	return p.output.String()
}

// PrintFunction returns the listing of a single function
func PrintFunction(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printContract(c *Contract) {
	if c.Address != "" {
		p.writeLine("CONTRACT %s @ %s", c.Name, c.Address)
	} else {
		p.writeLine("CONTRACT %s", c.Name)
	}

	p.indent++
	for _, sv := range c.StateVars {
		p.writeLine("STATE %s : %s", sv.Name, sv.Type)
	}
	for _, fn := range c.Functions {
		p.printFunction(fn)
	}
	p.indent--
}

func (p *Printer) printFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%s: %s", param.Name, param.Type)
	}

	header := fmt.Sprintf("FUNCTION %s(%s) %s %s", fn.Name, strings.Join(params, ", "), fn.Visibility, fn.Mutability)
	if len(fn.Modifiers) > 0 {
		header += " [" + strings.Join(fn.Modifiers, ", ") + "]"
	}
	if fn.Statements == nil {
		p.writeLine("%s ; no body", header)
		return
	}
	p.writeLine("%s", header)

	p.indent++
	p.printStatements(fn.Statements)
	p.indent--
}

func (p *Printer) printStatements(stmts []Statement) {
	for _, s := range stmts {
		p.printStatement(s)
	}
}

func (p *Printer) printStatement(s Statement) {
	prefix := fmt.Sprintf("#%-3d L%-4d", s.GetIndex(), s.GetLine())

	switch x := s.(type) {
	case *Assignment:
		kind := "let"
		if x.State {
			kind = "store"
		}
		p.writeLine("%s %s %s", prefix, kind, x)
	case *Call:
		line := fmt.Sprintf("%s call %s", prefix, x)
		if x.Checked {
			line += " [checked]"
		}
		p.writeLine("%s", line)
	case *Require:
		p.writeLine("%s %s", prefix, x)
	case *Return:
		p.writeLine("%s %s", prefix, x)
	case *Branch:
		p.writeLine("%s %s", prefix, x)
		p.indent++
		p.printStatements(x.Then)
		p.indent--
		if len(x.Else) > 0 {
			p.writeLine("%s else", strings.Repeat(" ", len(prefix)))
			p.indent++
			p.printStatements(x.Else)
			p.indent--
		}
	default:
		p.writeLine("%s %s", prefix, s)
	}
}
