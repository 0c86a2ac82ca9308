// Package compiler is the dsLang front end: a lexer, a recursive-descent
// parser, a semantic analyzer, and a code generator that lowers checked
// programs to the backend-neutral IR in dslang/pkg/ir.
//
// Pipeline: source text -> Lex -> Parse -> Analyze -> Generate -> ir.Module
//
// Every stage reports problems through a shared Reporter and keeps going,
// so a single run surfaces as many diagnostics as it can. Code generation
// only runs when the unit checked cleanly.
package compiler
