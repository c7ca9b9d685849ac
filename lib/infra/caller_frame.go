package infra

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"
)

// References:
// https://github.com/pkg/errors/blob/master/stack.go

const (
	unknownFile  = "unknownFile"
	unknownFunc  = "unknownFunc"
	unknownFrame = "unknownFrame"
)

// Frame is a program counter of a call site, it records where
// a container was mutated when its verification fails.
type Frame uintptr

// CallerFrame returns the frame of the caller. The skip 0 is
// the function calling CallerFrame.
//
//go:noinline
func CallerFrame(skip int) Frame {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) < 1 {
		return 0
	}
	return Frame(pcs[0])
}

// The pc is the return address, so minus 1 for the call.
func (frame Frame) pc() uintptr {
	return uintptr(frame) - 1
}

func (frame Frame) fn() *runtime.Func {
	if frame == 0 {
		return nil
	}
	return runtime.FuncForPC(frame.pc())
}

func (frame Frame) fileLine() (string, int) {
	fn := frame.fn()
	if fn == nil {
		return unknownFile, 0
	}
	return fn.FileLine(frame.pc())
}

func (frame Frame) name() string {
	fn := frame.fn()
	if fn == nil {
		return unknownFunc
	}
	return fn.Name()
}

// Format characters:
// %s - source file
// %d - source line
// %n - function name
// %v - equivalent to %s:%d
// %+s - function name and full path separated by \n\t
// %+v - equivalent to %+s:%d
func (frame Frame) Format(s fmt.State, verb rune) {
	file, line := frame.fileLine()
	switch verb {
	case 's':
		if s.Flag('+') {
			_, _ = io.WriteString(s, frame.name())
			_, _ = io.WriteString(s, "\n\t")
			_, _ = io.WriteString(s, file)
		} else {
			_, _ = io.WriteString(s, path.Base(file))
		}
	case 'd':
		_, _ = io.WriteString(s, strconv.Itoa(line))
	case 'n':
		_, _ = io.WriteString(s, shortFuncName(frame.name()))
	case 'v':
		frame.Format(s, 's')
		_, _ = io.WriteString(s, ":")
		frame.Format(s, 'd')
	default:
	}
}

// MarshalText is "<func> <file>:<line>".
func (frame Frame) MarshalText() ([]byte, error) {
	name := frame.name()
	if name == unknownFunc {
		return []byte(unknownFrame), nil
	}
	file, line := frame.fileLine()
	builder := strings.Builder{}
	_, _ = builder.WriteString(name)
	_, _ = builder.WriteString(" ")
	_, _ = builder.WriteString(file)
	_, _ = builder.WriteString(":")
	_, _ = builder.WriteString(strconv.Itoa(line))
	return []byte(builder.String()), nil
}

func (frame Frame) MarshalJSON() ([]byte, error) {
	name := frame.name()
	if name == unknownFunc {
		return []byte(`{"frame":"` + unknownFrame + `"}`), nil
	}
	file, line := frame.fileLine()
	return []byte(`{"func":` + strconv.Quote(name) +
		`,"fileAndLine":` + strconv.Quote(file+":"+strconv.Itoa(line)) + `}`), nil
}

// github.com/benz9527/xrbtree/lib/tree.(*rbTree[...]).Insert => (*rbTree[...]).Insert
func shortFuncName(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}
