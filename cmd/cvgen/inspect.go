package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/skdltmxn/codeview-go/codeview"
	"github.com/skdltmxn/codeview-go/coff"
	"github.com/skdltmxn/codeview-go/internal/symbols"
	"github.com/skdltmxn/codeview-go/internal/tpi"
)

var (
	inspectTypes   bool
	inspectSymbols bool
	inspectLines   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <obj-file>",
	Short: "Decode the CodeView sections of an object file",
	Long: `Decode and tabulate the .debug$T type records, the .debug$S symbol
records, and the line and file tables of an AMD64 object file.

Without a selection flag every table is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectTypes, "types", false, "show type records")
	inspectCmd.Flags().BoolVar(&inspectSymbols, "symbols", false, "show symbol records")
	inspectCmd.Flags().BoolVar(&inspectLines, "lines", false, "show line and file tables")
}

var heading = color.New(color.Bold, color.FgHiWhite)

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := coff.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	all := !inspectTypes && !inspectSymbols && !inspectLines

	fmt.Fprintf(output, "Object: %s\n", args[0])
	printSections(f)

	if all || inspectTypes {
		types, err := readTypes(f)
		if err != nil {
			return err
		}
		printTypes(types)
	}
	if all || inspectSymbols || inspectLines {
		sec, err := readSymbols(f)
		if err != nil {
			return err
		}
		if all || inspectSymbols {
			printSymbols(sec)
		}
		if all || inspectLines {
			printLines(sec)
		}
	}
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(output)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	return table
}

func printHeading(format string, args ...any) {
	fmt.Fprintln(output)
	heading.Fprintf(output, format, args...)
	fmt.Fprintln(output)
}

func printSections(f *coff.File) {
	printHeading("Sections")
	table := newTable("Name", "Size", "Relocations")
	for _, s := range f.Sections {
		table.Append([]string{s.Name, humanize.Bytes(uint64(s.SizeOfRawData)), fmt.Sprintf("%d", len(s.Relocations))})
	}
	table.Render()
}

func sectionData(f *coff.File, name string) ([]byte, error) {
	s, err := f.Section(name)
	if err != nil {
		return nil, err
	}
	return s.Data()
}

func readTypes(f *coff.File) (*tpi.Section, error) {
	data, err := sectionData(f, codeview.TypesSection)
	if err != nil {
		return nil, err
	}
	return tpi.Decode(data)
}

func readSymbols(f *coff.File) (*symbols.Section, error) {
	data, err := sectionData(f, codeview.SymbolsSection)
	if err != nil {
		return nil, err
	}
	return symbols.Decode(data)
}

func printTypes(s *tpi.Section) {
	printHeading("Types (%d)", len(s.Records))
	table := newTable("Index", "Kind", "Detail")
	for i, rec := range s.Records {
		ti := tpi.FirstUserTypeIndex + tpi.TypeIndex(i)
		table.Append([]string{fmt.Sprintf("0x%04X", uint32(ti)), rec.Kind().String(), describeType(rec)})
	}
	table.Render()
}

func describeType(rec tpi.Record) string {
	switch r := rec.(type) {
	case *tpi.PointerRecord:
		return fmt.Sprintf("-> 0x%04X", uint32(r.Referent))
	case *tpi.ProcedureRecord:
		return fmt.Sprintf("ret 0x%04X, %d params, args 0x%04X", uint32(r.ReturnType), r.ParameterCount, uint32(r.ArgumentList))
	case *tpi.MFunctionRecord:
		return fmt.Sprintf("class 0x%04X, this 0x%04X, ret 0x%04X, %d params", uint32(r.ClassType), uint32(r.ThisType), uint32(r.ReturnType), r.ParameterCount)
	case *tpi.ArgListRecord:
		args := make([]string, len(r.ArgTypes))
		for i, a := range r.ArgTypes {
			args[i] = fmt.Sprintf("0x%04X", uint32(a))
		}
		return "(" + strings.Join(args, ", ") + ")"
	case *tpi.MethodListRecord:
		return fmt.Sprintf("%d overloads", len(r.Methods))
	case *tpi.FieldListRecord:
		names := make([]string, 0, len(r.Fields))
		for _, fld := range r.Fields {
			names = append(names, describeField(fld))
		}
		return strings.Join(names, ", ")
	case *tpi.ClassRecord:
		fwd := ""
		if r.Properties&tpi.ClassForwardRef != 0 {
			fwd = " (forward)"
		}
		return fmt.Sprintf("%s%s, %d members, fields 0x%04X, size %d", r.Name, fwd, r.MemberCount, uint32(r.FieldList), r.Size)
	case *tpi.ArrayRecord:
		return fmt.Sprintf("elem 0x%04X, index 0x%04X, size %d", uint32(r.ElementType), uint32(r.IndexType), r.Size)
	case *tpi.StringIDRecord:
		return fmt.Sprintf("%q", r.Value)
	case *tpi.UDTSrcLineRecord:
		return fmt.Sprintf("type 0x%04X, source 0x%04X, line %d", uint32(r.Type), uint32(r.Source), r.Line)
	}
	return ""
}

func describeField(f tpi.Field) string {
	switch f := f.(type) {
	case *tpi.BaseClassField:
		return fmt.Sprintf("base 0x%04X", uint32(f.Type))
	case *tpi.IndexField:
		return fmt.Sprintf("continued at 0x%04X", uint32(f.Continuation))
	case *tpi.MemberField:
		return fmt.Sprintf("%s %s@%d", f.Attributes.Access(), f.Name, f.Offset)
	case *tpi.StaticMemberField:
		return fmt.Sprintf("%s static %s", f.Attributes.Access(), f.Name)
	case *tpi.OverloadedMethodField:
		return fmt.Sprintf("%s() x%d", f.Name, f.Count)
	case *tpi.OneMethodField:
		return fmt.Sprintf("%s %s()", f.Attributes.Access(), f.Name)
	}
	return f.Kind().String()
}

func printSymbols(s *symbols.Section) {
	printHeading("Symbols (%d)", len(s.Symbols))
	table := newTable("Kind", "Type", "Detail")
	for _, rec := range s.Symbols {
		typ, detail := describeSymbol(rec)
		table.Append([]string{rec.Kind().String(), typ, detail})
	}
	table.Render()
}

func describeSymbol(rec symbols.Subrecord) (string, string) {
	idx := func(ti tpi.TypeIndex) string { return fmt.Sprintf("0x%04X", uint32(ti)) }
	switch r := rec.(type) {
	case *symbols.ObjNameSym:
		return "", r.Name
	case *symbols.Compile3Sym:
		v := r.FrontendVersion
		return "", fmt.Sprintf("%s %d.%d.%d", r.Version, v[0], v[1], v[2])
	case *symbols.EnvBlockSym:
		pairs := make([]string, len(r.Pairs))
		for i, p := range r.Pairs {
			pairs[i] = p.Key + "=" + p.Value
		}
		return "", strings.Join(pairs, " ")
	case *symbols.ProcSym:
		return idx(r.Type), fmt.Sprintf("%s, %s", r.Name, humanize.Bytes(uint64(r.Length)))
	case *symbols.FrameProcSym:
		return "", fmt.Sprintf("frame %d bytes", r.TotalFrameBytes)
	case *symbols.LocalSym:
		if r.Flags.IsParam() {
			return idx(r.Type), r.Name + " (param)"
		}
		return idx(r.Type), r.Name
	case *symbols.DefRangeRegisterSym:
		return "", fmt.Sprintf("reg %d [+0x%x, +0x%x)", r.Register, r.Range.Offset, r.Range.Offset+uint32(r.Range.Length))
	case *symbols.DefRangeFramePointerRelSym:
		return "", fmt.Sprintf("fp%+d [+0x%x, +0x%x)", r.Offset, r.Range.Offset, r.Range.Offset+uint32(r.Range.Length))
	case *symbols.DataSym:
		return idx(r.Type), fmt.Sprintf("%s @0x%x", r.Name, r.Offset)
	case *symbols.RegRelSym:
		return idx(r.Type), fmt.Sprintf("%s @reg%d%+d", r.Name, r.Register, int32(r.Offset))
	case *symbols.UDTSym:
		return idx(r.Type), r.Name
	}
	return "", ""
}

func printLines(s *symbols.Section) {
	printHeading("Files (%d)", len(s.Files))
	files := newTable("Offset", "Name", "MD5")
	for _, fc := range s.Files {
		sum := "-"
		if fc.HasChecksum() {
			sum = fmt.Sprintf("%x", fc.Checksum)
		}
		files.Append([]string{fmt.Sprintf("0x%04X", fc.Offset), fc.Name, sum})
	}
	files.Render()

	printHeading("Lines (%d functions)", len(s.Lines))
	table := newTable("Function", "File", "Offset", "Line")
	for i, lr := range s.Lines {
		for _, b := range lr.Blocks {
			name := color.YellowString("<unknown file 0x%x>", b.FileOffset)
			if fc, ok := s.FileAt(b.FileOffset); ok {
				name = fc.Name
			}
			for _, l := range b.Lines {
				table.Append([]string{fmt.Sprintf("#%d", i), name, fmt.Sprintf("+0x%x", l.Offset), fmt.Sprintf("%d", l.Line)})
			}
		}
	}
	table.Render()
}
