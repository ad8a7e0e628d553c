package symbols

import (
	"strconv"
	"strings"
)

// CodeView AMD64 register ids.
const (
	CV_AMD64_RAX   uint16 = 328
	CV_AMD64_R14   uint16 = 342
	CV_AMD64_XMM0  uint16 = 154
	CV_AMD64_XMM8  uint16 = 252
	cvAMD64GPCount        = 16
	cvAMD64XMMLow         = 8
)

var amd64GP = [cvAMD64GPCount]string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

var amd64Registers = func() map[string]uint16 {
	m := make(map[string]uint16, 32)
	for i, name := range amd64GP {
		m[name] = CV_AMD64_RAX + uint16(i)
	}
	for i := range 16 {
		id := CV_AMD64_XMM0 + uint16(i)
		if i >= cvAMD64XMMLow {
			id = CV_AMD64_XMM8 + uint16(i-cvAMD64XMMLow)
		}
		m["xmm"+strconv.Itoa(i)] = id
	}
	return m
}()

// RegisterID maps an AMD64 register name to its CodeView id.
func RegisterID(name string) (uint16, bool) {
	id, ok := amd64Registers[strings.ToLower(name)]
	return id, ok
}
