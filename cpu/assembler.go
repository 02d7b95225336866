// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/vm16/memory"
)

const (
	ADDRESS_LIMIT = 0x10000 // Size of the processor's address range.
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Link is a 16-bit operand to be patched with the address of a label.
type Link struct {
	Offset int    // Offset of the operand in the statement's bytes.
	Label  string // Label to resolve.
}

// Statement represents a line of assembled code with its source location
// and generated bytes.
type Statement struct {
	LineNo  int
	Address int
	Words   []string
	Bytes   []uint8
	Links   []Link
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

var (
	reIdentifier = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLocal      = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_.]*)`)
)

// Assembler is a single pass macro assembler for the vm16 system.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of generated statements.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	address    int // Address of the next statement.
	expansions int // Count of macro expansions, for local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// splitWords splits a line into words, on whitespace and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

// valueOf returns the 16-bit value of a simple word. Negative values are
// stored as two's complement.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	invert := false
	if strings.HasPrefix(word, "~") {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}
	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xffff || v64 < -0x8000 {
		err = ErrValueRange
		return
	}

	value = uint16(v64)
	if invert {
		value = ^value
	}

	return
}

// operandValue returns the value of a literal or address operand. Words
// that name a label are returned as a label to be linked.
func (asm *Assembler) operandValue(word string) (value uint16, label string, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	_, is_number := err.(ErrParseNumber)
	if !is_number || !reIdentifier.MatchString(word) {
		return
	}

	_, reg_err := LookupRegister(word)
	if reg_err == nil {
		// Registers are not values.
		return
	}

	label = word
	err = nil
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	for key, address := range asm.Label {
		_, ok := pred[key]
		if !ok && reIdentifier.MatchString(key) {
			pred[key] = starlark.MakeInt(address)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > 0xffff || st_int64 < -0x8000 {
		err = ErrValueRange
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine parses a single line into words, handling equates, labels,
// and macro expansion.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.address
		if asm.Verbose {
			log.Printf("asm: label %v = 0x%04x", label, asm.address)
		}
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' prefixes labels local to this expansion.
		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = reLocal.ReplaceAllString(line, local+"${1}")
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.Statement = asm.Statement[:0]
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.address = 0
	asm.expansions = 0

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		st := &asm.Statement[n]

		for _, link := range st.Links {
			address, ok := asm.Label[link.Label]
			if !ok {
				lineno = st.LineNo
				line = strings.Join(st.Words, " ")
				err = ErrLabelMissing(link.Label)
				return
			}
			st.Bytes[link.Offset], st.Bytes[link.Offset+1] = memory.Split16(uint16(address))
		}
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
	}

	return
}

// parseValues encodes the words as a sequence of 16-bit or 8-bit values.
func (asm *Assembler) parseValues(words []string, wide bool) (bytes []uint8, links []Link, err error) {
	for _, word := range words {
		var value uint16
		var label string
		value, label, err = asm.operandValue(word)
		if err != nil {
			return
		}
		if !wide {
			if label != "" || (value > 0xff && value < 0xff80) {
				err = ErrValueRange
				return
			}
			bytes = append(bytes, uint8(value))
			continue
		}
		if label != "" {
			links = append(links, Link{Offset: len(bytes), Label: label})
		}
		hi, lo := memory.Split16(value)
		bytes = append(bytes, hi, lo)
	}

	return
}

// parseInstruction encodes an opcode mnemonic and its operands.
func (asm *Assembler) parseInstruction(words []string) (bytes []uint8, links []Link, err error) {
	op, ok := LookupOpcode(words[0])
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]
	operands := op.Operands()
	if len(args) < len(operands) {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > len(operands) {
		err = ErrOpcodeExtraArgs
		return
	}

	bytes = []uint8{uint8(op)}
	for n, operand := range operands {
		if operand == OPERAND_REG {
			var reg Register
			reg, err = LookupRegister(args[n])
			if err != nil {
				return
			}
			bytes = append(bytes, uint8(reg))
			continue
		}
		var value []uint8
		var value_links []Link
		value, value_links, err = asm.parseValues(args[n:n+1], true)
		if err != nil {
			return
		}
		for _, link := range value_links {
			links = append(links, Link{Offset: len(bytes) + link.Offset, Label: link.Label})
		}
		bytes = append(bytes, value...)
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var bytes []uint8
	var links []Link

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var org uint16
		org, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if int(org) < asm.address {
			err = ErrOrgBackwards
			return
		}
		asm.address = int(org)
		return
	case ".word":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		bytes, links, err = asm.parseValues(words[1:], true)
	case ".byte":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		bytes, links, err = asm.parseValues(words[1:], false)
	default:
		bytes, links, err = asm.parseInstruction(words)
	}
	if err != nil {
		return
	}

	if asm.address+len(bytes) > ADDRESS_LIMIT {
		err = ErrValueRange
		return
	}

	statement := Statement{
		LineNo:  lineno,
		Address: asm.address,
		Words:   initial_words,
		Bytes:   bytes,
		Links:   links,
	}
	asm.Statement = append(asm.Statement, statement)
	asm.address += len(bytes)

	return
}
