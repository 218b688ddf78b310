package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

type Program struct {
	Contracts []*Contract `@@*`
}

type Contract struct {
	Pos     lexer.Position
	Kind    string    `@("contract" | "library")`
	Name    string    `@Ident`
	Address string    `[ "at" @Integer ]`
	Members []*Member `"{" @@* "}"`
}

type Member struct {
	State    *StateVar `  @@`
	Function *Function `| @@`
}

type StateVar struct {
	Pos  lexer.Position
	Type *TypeName `"state" @@`
	Name string    `@Ident ";"`
}

type TypeName struct {
	Mapping *MappingType `(  @@`
	Name    string       ` | @Ident )`
	Array   bool         `[ @"[" "]" ]`
}

type MappingType struct {
	Key   *TypeName `"mapping" "(" @@ "=>"`
	Value *TypeName `@@ ")"`
}

type Function struct {
	Pos        lexer.Position
	Name       string       `"function" @Ident "("`
	Params     []*Param     `[ @@ { "," @@ } ] ")"`
	Attributes []*Attribute `@@*`
	Body       *Block       `( @@ | ";" )`
}

type Param struct {
	Type *TypeName `@@`
	Name string    `[ @Ident ]`
}

// Attribute covers visibility, mutability, modifiers and the returns clause.
type Attribute struct {
	Returns  []*Param  `  "returns" "(" @@ { "," @@ } ")"`
	Modifier *Modifier `| @@`
}

type Modifier struct {
	Name string  `@Ident`
	Args []*Expr `[ "(" [ @@ { "," @@ } ] ")" ]`
}

type Block struct {
	Statements []*Statement `"{" @@* "}"`
}

type Statement struct {
	Pos       lexer.Position
	Require   *RequireStmt `  @@`
	If        *IfStmt      `| @@`
	Return    *ReturnStmt  `| @@`
	Revert    *RevertStmt  `| @@`
	Emit      *EmitStmt    `| @@`
	Unchecked *Block       `| "unchecked" @@`
	Block     *Block       `| @@`
	Decl      *VarDecl     `| @@`
	Expr      *ExprStmt    `| @@`
}

type RequireStmt struct {
	Kind    string  `@("require" | "assert") "("`
	Cond    *Expr   `@@`
	Message *string `[ "," @String ] ")" ";"`
}

type IfStmt struct {
	Cond *Expr      `"if" "(" @@ ")"`
	Then *Statement `@@`
	Else *Statement `[ "else" @@ ]`
}

type ReturnStmt struct {
	Value *Expr `"return" [ @@ ] ";"`
}

type RevertStmt struct {
	Error string  `"revert" [ @Ident ]`
	Args  []*Expr `[ "(" [ @@ { "," @@ } ] ")" ] ";"`
}

type EmitStmt struct {
	Event *Expr `"emit" @@ ";"`
}

type VarDecl struct {
	Type  *TypeName `@@`
	Name  string    `@Ident`
	Value *Expr     `[ "=" @@ ] ";"`
}

type ExprStmt struct {
	Target *Expr  `@@`
	Op     string `[ @("=" | "+=" | "-=" | "*=" | "/=")`
	Value  *Expr  `  @@ ] ";"`
}

type Expr struct {
	Left *AndExpr   `@@`
	Rest []*AndExpr `{ "||" @@ }`
}

type AndExpr struct {
	Left *CmpExpr   `@@`
	Rest []*CmpExpr `{ "&&" @@ }`
}

type CmpExpr struct {
	Left  *AddExpr `@@`
	Op    string   `[ @("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Right *AddExpr `  @@ ]`
}

type AddExpr struct {
	Left *MulExpr `@@`
	Rest []*OpTerm `{ @@ }`
}

type OpTerm struct {
	Op    string   `@("+" | "-")`
	Right *MulExpr `@@`
}

type MulExpr struct {
	Left *UnaryExpr  `@@`
	Rest []*OpFactor `{ @@ }`
}

type OpFactor struct {
	Op    string     `@("*" | "/" | "%")`
	Right *UnaryExpr `@@`
}

type UnaryExpr struct {
	Op    string       `[ @("!" | "-") ]`
	Value *PostfixExpr `@@`
}

type PostfixExpr struct {
	Primary *PrimaryExpr `@@`
	Suffix  []*PostfixOp `{ @@ }`
}

type PostfixOp struct {
	Member *string   `  "." @(Ident | Integer)`
	Index  *Expr     `| "[" @@ "]"`
	Call   *CallArgs `| @@`
}

type CallArgs struct {
	Pos  lexer.Position
	Open string  `@"("`
	Args []*Expr `[ @@ { "," @@ } ] ")"`
}

type PrimaryExpr struct {
	Number *string `  @Integer`
	String *string `| @String`
	Ident  *string `| @Ident`
	Parens *Expr   `| "(" @@ ")"`
}
