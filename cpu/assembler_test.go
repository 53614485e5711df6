package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parse(asm *Assembler, lines ...string) (*Program, error) {
	return asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
}

func TestAssembler_Encoding(t *testing.T) {
	table := [](struct {
		line string
		code []byte
	}){
		{"copy r8 r9", []byte{0x01, 8, 9}},
		{"copy zero rv", []byte{0x01, 0, 1}},
		{"copy thread next.pool", []byte{0x01, 5, 7}},
		{"copy r63 rv.hi", []byte{0x01, 63, 2}},
		{"nop", []byte{0x01, 0, 0}},
		{"load.pool 200 r8", []byte{0x02, 0x80, 0xc8, 8}},
		{"invoke r8 -", []byte{0x03, 8, 0}},
		{"call r8 r1", []byte{0x03, 8, 1, 1}},
		{"invoke.pp r8 r9 r10,r11", []byte{0x04, 8, 9, 2, 10, 11}},
		{"return", []byte{0x05}},
		{"syscall r8 r9,r10", []byte{0x06, 8, 2, 9, 10}},
		{"atomic.inc r8 4", []byte{0x0b, 8, 4}},
		{"debug.point 1 300 2", []byte{0x0e, 1, 0x81, 0x2c, 2}},
		{"breakpoint", []byte{0x50}},
		{"breakpoint.marked 0x7f 3", []byte{0x51, 0x7f, 3}},
		{"math.add r8 r9 r10", []byte{0x20, 8, 9, 10}},
		{"mathc.sub r8 0x12345678 r9", []byte{0xa1, 8, 0x12, 0x34, 0x56, 0x78, 9}},
		{"mathc.add zero -1 r8", []byte{0xa0, 0, 0xff, 0xff, 0xff, 0xff, 8}},
		{"mathc.add zero ~0 r8", []byte{0xa0, 0, 0xff, 0xff, 0xff, 0xff, 8}},
		{"mathc.add zero 'A' r8", []byte{0xa0, 0, 0, 0, 0, 0x41, 8}},
		{`mathc.add zero '\n' r8`, []byte{0xa0, 0, 0, 0, 0, 0x0a, 8}},
		{"mathc.add zero $(3 * 7) r8", []byte{0xa0, 0, 0, 0, 0, 21, 8}},
		{"if.eq r8 r9 4", []byte{0x10, 8, 9, 4}},
		{"if.eq r8 r9 -4", []byte{0x10, 8, 9, 0xff, 0xfc}},
		{"if.eq r8 r9 0x100", []byte{0x10, 8, 9, 0x81, 0x00}},
		{"ifc.lt r8 100 4", []byte{0x1a, 8, 0, 0, 0, 100, 4}},
		{"jump 0", []byte{0x16, 0, 0, 0}},
		{"mh.store.int r8 r9 r10", []byte{0x33, 8, 9, 10}},
		{"mh.load.int r8 r9 r10", []byte{0x3b, 8, 9, 10}},
		{"mhc.load.byte r8 r9 16", []byte{0xb8, 8, 9, 0, 0, 0, 16}},
		{"mem.load.char r8 r9 r10 r11", []byte{0x4a, 8, 9, 10, 11}},
		{"memc.store.short r8 r9 r10 8", []byte{0xc1, 8, 9, 10, 0, 0, 0, 8}},
		{"copy r8 r9 ; trailing comment", []byte{0x01, 8, 9}},
	}

	for _, entry := range table {
		asm := &Assembler{}
		prog, err := parse(asm, entry.line)
		if !assert.NoError(t, err, entry.line) {
			continue
		}
		assert.Equal(t, entry.code, prog.Code, entry.line)
		assert.Equal(t, 1, len(prog.Lines), entry.line)

		// Every encoding must decode back to the same length.
		var inst Instruction
		err = inst.Decode(prog.Code)
		if assert.NoError(t, err, entry.line) {
			assert.Equal(t, len(entry.code), inst.Length, entry.line)
		}
	}
}

func TestAssembler_Equ(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := parse(asm,
		".equ COUNT 5",
		".equ LOOP r8",
		"mathc.add zero COUNT LOOP",
		"mathc.add zero $(COUNT * 3 + 1) r9",
		"mathc.add zero $(LINENO) r10",
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	assert.Equal([]byte{
		0xa0, 0, 0, 0, 0, 5, 8,
		0xa0, 0, 0, 0, 0, 16, 9,
		0xa0, 0, 0, 0, 0, 5, 10,
	}, prog.Code)
	assert.Equal(3, len(prog.Lines))
	assert.Equal([]string{"mathc.add", "zero", "5", "r8"}, prog.Lines[0].Words)
}

func TestAssembler_Predefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SYSCALL_EXIT", "27")
	asm.Predefine("ANSWER", "41")
	asm.Predefine("ANSWER", "42")

	prog, err := parse(asm,
		"mathc.add zero SYSCALL_EXIT r8",
		"mathc.add zero ANSWER r9",
	)
	assert.NoError(err)
	assert.Equal([]byte{
		0xa0, 0, 0, 0, 0, 27, 8,
		0xa0, 0, 0, 0, 0, 42, 9,
	}, prog.Code)

	// Predefines survive a second parse, equates do not.
	_, err = parse(asm, ".equ LOCAL 1")
	assert.NoError(err)
	_, err = parse(asm, ".equ LOCAL 2", "mathc.add zero ANSWER r9")
	assert.NoError(err)
}

func TestAssembler_Macro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := parse(asm,
		".macro SETADD rn a b",
		"mathc.add zero a rn",
		"mathc.add rn b rn",
		".endm",
		"SETADD r8 1 2",
		".macro SPIN reg",
		"@loop: if.ne reg zero @loop",
		".endm",
		"SPIN r9",
		"SPIN r10",
		".macro NESTED value",
		"SETADD r11 value $(~value)",
		".endm",
		"NESTED 0",
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{
		0xa0, 0, 0, 0, 0, 1, 8,
		0xa0, 8, 0, 0, 0, 2, 8,
		0x11, 9, 0, 0x80, 0,
		0x11, 10, 0, 0x80, 0,
		0xa0, 0, 0, 0, 0, 0, 11,
		0xa0, 11, 0xff, 0xff, 0xff, 0xff, 11,
	}, prog.Code)

	// Local labels are unique to each expansion.
	assert.Equal(uint32(14), prog.Label["SPIN_2_loop"])
	assert.Equal(uint32(19), prog.Label["SPIN_3_loop"])
}

func TestAssembler_Label(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{Base: 0x100}
	prog, err := parse(asm,
		"start:  nop",
		"        jump done",
		"loop:   if.ne r8 zero loop",
		"done:   return",
		"        .word start done",
		"        ifc.eq r8 done 0",
		"end:",
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{
		0x01, 0, 0,
		0x16, 0, 0, 0x80, 0x0a,
		0x11, 8, 0, 0x80, 0x00,
		0x05,
		0, 0, 0x01, 0x00, 0, 0, 0x01, 0x0d,
		0x18, 8, 0, 0, 0x01, 0x0d, 0,
	}, prog.Code)
	assert.Equal(map[string]uint32{
		"start": 0x100,
		"loop":  0x108,
		"done":  0x10d,
		"end":   0x11d,
	}, prog.Label)

	addrs := []uint32{}
	for _, line := range prog.Lines {
		addrs = append(addrs, line.Addr)
	}
	assert.Equal([]uint32{0x100, 0x103, 0x108, 0x10d, 0x10e, 0x116}, addrs)
	assert.Equal(6, prog.Lines[5].LineNo)
}

func TestAssembler_LabelExpression(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := parse(asm,
		"first: nop",
		"last:  nop",
		"       mathc.add zero $(last - first) r8",
	)
	assert.NoError(err)
	assert.Equal(byte(3), prog.Code[11])
}

func TestAssembler_Directive(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := parse(asm,
		".byte 1 2 -1",
		".align 4",
		".word 0x11223344",
		`.utf "hi there"`,
		".org 0x14",
		".byte 'x'",
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{
		1, 2, 0xff,
		0,
		0x11, 0x22, 0x33, 0x44,
		0, 8, 'h', 'i', ' ', 't', 'h', 'e', 'r', 'e',
		0, 0,
		'x',
	}, prog.Code)
	assert.Equal([]string{".utf", `"hi there"`}, prog.Lines[3].Words)
}

func TestAssembler_Utf(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := parse(asm, `.utf "a\u0000b;c"`)
	assert.NoError(err)
	assert.Equal([]byte{0, 6, 'a', 0xc0, 0x80, 'b', ';', 'c'}, prog.Code)
}

func TestAssembler_ErrSyntax(t *testing.T) {
	table := [](struct {
		prog   string
		lineno int
		err    error
	}){
		{"DUP:\nDUP:\n", 2, ErrLabelDuplicate},
		{"copy r8", 1, ErrOpcodeValueMissing},
		{"copy r8 r9 r10", 1, ErrOpcodeExtraArgs},
		{"copy r64 r1", 1, ErrRegisterInvalid},
		{"copy x1 r1", 1, ErrRegisterInvalid},
		{"invoke r8 r1,bogus", 1, ErrRegisterInvalid},
		{"frob r1", 1, ErrInstructionInvalid},
		{"nop\njump MISSING\n", 2, ErrLabelMissing("MISSING")},
		{".equ A 1\n.equ A 2\n", 2, ErrEquateDuplicate},
		{".equ A", 1, ErrEquateSyntax},
		{".macro A\nnop\n", 2, ErrMacroLonely},
		{".endm", 1, ErrMacroLonelyEndm},
		{".macro A\n.macro B\n", 2, ErrMacroNesting},
		{".macro\n", 1, ErrMacroSyntax},
		{".macro A\n.endm\n.macro A\n.endm\n", 3, ErrMacroDuplicate},
		{".macro A x\n.endm\nA\n", 3, ErrMacroSyntax},
		{".macro A\ncopy r1\n.endm\nnop\nA\n", 5, ErrOpcodeValueMissing},
		{".org 0x10\n.org 0x8\n", 2, ErrOrgBackwards},
		{".bogus 1", 1, ErrDirectiveSyntax},
		{".word", 1, ErrDirectiveSyntax},
		{".byte 256", 1, ErrValueRange},
		{".align 0", 1, ErrValueRange},
		{".utf hello", 1, ErrDirectiveSyntax},
		{"load.pool 0x8000 r1", 1, ErrValueRange},
		{"if.eq r1 r2 0x4000", 1, ErrJumpRange},
		{"jump FAR\n.org 0x5000\nFAR: nop\n", 1, ErrJumpRange},
		{"mathc.add zero nothing! r8", 1, ErrParseNumber("nothing!")},
		{"mathc.add zero 0x100000000 r8", 1, ErrParseNumber("0x100000000")},
		{`mathc.add zero $("aaa") r8`, 1, ErrParseExpression(`"aaa"`)},
		{"mathc.add zero $(missing(1)) r8", 1, nil},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(entry.prog))
		if !assert.Error(t, err, entry.prog) {
			continue
		}

		var se *ErrSyntax
		if assert.True(t, errors.As(err, &se), entry.prog) {
			assert.Equal(t, entry.lineno, se.LineNo, entry.prog)
		}
		if entry.err != nil {
			assert.ErrorIs(t, err, entry.err, entry.prog)
		}
	}
}

func TestAssembler_ErrMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := parse(asm,
		".macro BAD reg",
		"nop",
		"copy reg",
		".endm",
		"BAD r8",
	)

	var em *ErrMacro
	if assert.True(errors.As(err, &em)) {
		assert.Equal("BAD", em.Macro)
		assert.Equal(3, em.Line)
	}
	assert.ErrorIs(err, ErrOpcodeValueMissing)
}

func TestAssembler_Reuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := parse(asm, ".macro M\n.endm", "L: M")
	assert.NoError(err)

	prog, err := parse(asm, ".macro M\nnop\n.endm", "L: M")
	assert.NoError(err)
	assert.Equal([]byte{0x01, 0, 0}, prog.Code)
	assert.Equal(uint32(0), prog.Label["L"])
}

func FuzzAssembler_Parse(f *testing.F) {
	f.Add("copy r8 r9\nL: jump L\n")
	f.Add(".macro A x\nmathc.add zero x r8\n.endm\nA 3\n")
	f.Add(`.utf "text"` + "\n.align 4\n.word L\nL:\n")

	f.Fuzz(func(t *testing.T, text string) {
		if strings.Contains(text, ".org") {
			t.Skip()
		}
		asm := &Assembler{}
		prog, err := asm.Parse(strings.NewReader(text))
		if err != nil {
			return
		}
		total := 0
		for _, line := range prog.Lines {
			total += line.Length
		}
		if total > len(prog.Code) {
			t.Fatalf("lines cover %d bytes, code is %d", total, len(prog.Code))
		}
	})
}
