// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/nativecpu/memory"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// link is a label reference to resolve once every label is known.
type link struct {
	LineNo   int    // Line of the reference.
	Pc       uint32 // Start of the referencing instruction.
	Offset   int    // Offset of the slot in the code.
	Label    string // Target label.
	Relative bool   // 2-byte jump displacement, else a 4-byte address.
}

// Assembler is a single pass macro assembler for the native CPU.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Base    uint32 // Address of the first assembled byte.

	predefine map[string]string   // Predefines
	Label     map[string]uint32   // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	code      []byte
	lines     []Line
	links     []link
	expansion int // Count of macro expansions, for local labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap maps register aliases to register indexes.
var regMap = map[string]int32{
	"zero":      ZERO_REGISTER,
	"rv":        RETURN_REGISTER,
	"rv.hi":     RETURN_REGISTER_HI,
	"exception": EXCEPTION_REGISTER,
	"sfp":       STATIC_FIELD_REGISTER,
	"thread":    THREAD_REGISTER,
	"pool":      POOL_REGISTER,
	"next.pool": NEXT_POOL_REGISTER,
}

var reLabel = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// register returns the index of a register word.
func (asm *Assembler) register(word string) (reg int32, err error) {
	equate, ok := asm.Equate[word]
	if ok {
		word = equate
	}

	reg, ok = regMap[word]
	if ok {
		return
	}

	if len(word) < 2 || word[0] != 'r' {
		err = ErrRegisterInvalid
		return
	}

	value, perr := strconv.ParseUint(word[1:], 10, 8)
	if perr != nil || value >= MAX_REGISTERS {
		err = ErrRegisterInvalid
		return
	}

	reg = int32(value)
	return
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil || value > math.MaxUint32 || value < math.MinInt32 {
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = int64(^uint32(value))
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int64
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		if reLabel.MatchString(key) && !strings.Contains(key, ".") {
			pred[key] = starlark.MakeInt64(v)
		}
	}
	for key, addr := range asm.Label {
		if !strings.Contains(key, ".") {
			pred[key] = starlark.MakeUint64(uint64(addr))
		}
	}
	err = nil

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
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// splitWords splits a line into words. Double quoted strings are one word.
func splitWords(line string) (words []string) {
	var sb strings.Builder
	quoted := false
	escaped := false
	for _, c := range line {
		switch {
		case quoted:
			sb.WriteRune(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				quoted = false
			}
		case c == '"':
			quoted = true
			sb.WriteRune(c)
		case c == ' ' || c == '\t':
			if sb.Len() != 0 {
				words = append(words, sb.String())
				sb.Reset()
			}
		default:
			sb.WriteRune(c)
		}
	}
	if sb.Len() != 0 {
		words = append(words, sb.String())
	}
	return
}

// stripComment removes a ';' comment which is not inside a string.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				return text[:n]
			}
		}
	}
	return text
}

var (
	reCharacter = regexp.MustCompile(`'\\?[^']'`)
	reParen     = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine parses a single line as an opcode.
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
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
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

		if asm.Label == nil {
			asm.Label = make(map[string]uint32, 16)
		}
		asm.Label[label] = asm.currentPc()
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

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
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

// currentPc gets the address of the next assembled byte.
func (asm *Assembler) currentPc() uint32 {
	return asm.Base + uint32(len(asm.code))
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

	asm.Label = make(map[string]uint32, 16)
	asm.code = nil
	asm.lines = nil
	asm.links = nil
	asm.expansion = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
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
	for _, ln := range asm.links {
		lineno = ln.LineNo
		target, ok := asm.Label[ln.Label]
		if !ok {
			err = ErrLabelMissing(ln.Label)
			return
		}
		slot := asm.code[ln.Offset:]
		if ln.Relative {
			disp := int64(target) - int64(ln.Pc)
			if disp < -0x4000 || disp > 0x3fff {
				err = ErrJumpRange
				return
			}
			raw := uint16(disp) & 0x7fff
			slot[0] = 0x80 | byte(raw>>8)
			slot[1] = byte(raw)
		} else {
			binary.BigEndian.PutUint32(slot, target)
		}
	}

	prog = &Program{
		Base:  asm.Base,
		Code:  slices.Clone(asm.code),
		Label: maps.Clone(asm.Label),
		Lines: slices.Clone(asm.lines),
	}

	return
}

// appendVuint encodes a 15-bit unsigned value.
func appendVuint(code []byte, value uint16) []byte {
	if value < 0x80 {
		return append(code, byte(value))
	}
	return append(code, 0x80|byte(value>>8), byte(value))
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	pc := asm.currentPc()
	start := len(asm.code)
	initial_words := slices.Clone(words)

	defer func() {
		if err != nil {
			asm.code = asm.code[:start]
			return
		}
		if len(asm.code) == start {
			return
		}
		asm.lines = append(asm.lines, Line{LineNo: lineno, Addr: pc, Words: initial_words, Length: len(asm.code) - start})
	}()

	// Alternate syntax substitutions
	switch {
	case len(words) == 1 && words[0] == "nop":
		words = []string{"copy", "zero", "zero"}
	case len(words) == 2 && words[0] == "jump":
		words = []string{"if.true", "zero", "zero", words[1]}
	case len(words) >= 2 && words[0] == "call":
		// call REG ARGS => invoke REG ARGS
		words = append([]string{"invoke"}, words[1:]...)
	default:
		// unchanged
	}

	if strings.HasPrefix(words[0], ".") {
		return asm.parseDirective(words, lineno)
	}

	op, ok := Lookup(words[0])
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	format := op.Format()
	args := words[1:]
	if len(args) < len(format) {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > len(format) {
		err = ErrOpcodeExtraArgs
		return
	}

	asm.code = append(asm.code, byte(op))

	for n, af := range format {
		word := args[n]
		switch af {
		case FORMAT_VUREG:
			var reg int32
			reg, err = asm.register(word)
			if err != nil {
				return
			}
			asm.code = appendVuint(asm.code, uint16(reg))
		case FORMAT_VUINT, FORMAT_VPOOL:
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value < 0 || value > 0x7fff {
				err = ErrValueRange
				return
			}
			asm.code = appendVuint(asm.code, uint16(value))
		case FORMAT_VJUMP:
			var disp int64
			disp, err = asm.valueOf(word)
			if err != nil {
				if !reLabel.MatchString(word) {
					return
				}
				err = nil
				asm.links = append(asm.links, link{LineNo: lineno, Pc: pc, Offset: len(asm.code), Label: word, Relative: true})
				asm.code = append(asm.code, 0x80, 0)
				continue
			}
			if disp < -0x4000 || disp > 0x3fff {
				err = ErrJumpRange
				return
			}
			asm.code = appendVuint(asm.code, uint16(disp)&0x7fff)
		case FORMAT_REGLIST:
			var regs []int32
			if word != "-" {
				for _, name := range strings.Split(word, ",") {
					var reg int32
					reg, err = asm.register(name)
					if err != nil {
						return
					}
					regs = append(regs, reg)
				}
			}
			if len(regs) >= 0x80 {
				err = ErrValueRange
				return
			}
			asm.code = append(asm.code, byte(len(regs)))
			for _, reg := range regs {
				asm.code = append(asm.code, byte(reg))
			}
		case FORMAT_INT32:
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				if !reLabel.MatchString(word) {
					return
				}
				err = nil
				asm.links = append(asm.links, link{LineNo: lineno, Pc: pc, Offset: len(asm.code), Label: word})
				value = 0
			}
			asm.code = binary.BigEndian.AppendUint32(asm.code, uint32(value))
		case FORMAT_FLOAT32:
			var value float64
			value, err = strconv.ParseFloat(word, 32)
			if err != nil {
				err = ErrParseNumber(word)
				return
			}
			asm.code = binary.BigEndian.AppendUint32(asm.code, math.Float32bits(float32(value)))
		}
	}

	return
}

// parseDirective evaluates the data layout directives.
func (asm *Assembler) parseDirective(words []string, lineno int) (err error) {
	args := words[1:]

	switch words[0] {
	case ".org":
		if len(args) != 1 {
			err = ErrDirectiveSyntax
			return
		}
		var addr int64
		addr, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if addr < int64(asm.currentPc()) {
			err = ErrOrgBackwards
			return
		}
		asm.code = append(asm.code, make([]byte, addr-int64(asm.currentPc()))...)
	case ".align":
		if len(args) != 1 {
			err = ErrDirectiveSyntax
			return
		}
		var align int64
		align, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if align < 1 || align > 0x10000 {
			err = ErrValueRange
			return
		}
		for int64(asm.currentPc())%align != 0 {
			asm.code = append(asm.code, 0)
		}
	case ".word":
		if len(args) == 0 {
			err = ErrDirectiveSyntax
			return
		}
		for _, word := range args {
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				if !reLabel.MatchString(word) {
					return
				}
				err = nil
				asm.links = append(asm.links, link{LineNo: lineno, Pc: asm.currentPc(), Offset: len(asm.code), Label: word})
				value = 0
			}
			asm.code = binary.BigEndian.AppendUint32(asm.code, uint32(value))
		}
	case ".byte":
		if len(args) == 0 {
			err = ErrDirectiveSyntax
			return
		}
		for _, word := range args {
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value < math.MinInt8 || value > math.MaxUint8 {
				err = ErrValueRange
				return
			}
			asm.code = append(asm.code, byte(value))
		}
	case ".utf":
		if len(args) != 1 {
			err = ErrDirectiveSyntax
			return
		}
		var text string
		text, err = strconv.Unquote(args[0])
		if err != nil {
			err = ErrDirectiveSyntax
			return
		}
		data := memory.EncodeUtf(text)
		if len(data) > math.MaxUint16 {
			err = ErrValueRange
			return
		}
		asm.code = binary.BigEndian.AppendUint16(asm.code, uint16(len(data)))
		asm.code = append(asm.code, data...)
	default:
		err = ErrDirectiveSyntax
	}

	return
}
