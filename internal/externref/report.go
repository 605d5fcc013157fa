package externref

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Report renders a human-readable summary of a Process run: which
// functions were retyped, how, and where the reference table ended up.
// It is the backing implementation of the --inspect CLI flag.
func Report(w io.Writer, res *Result) {
	if res == nil || !res.Changed {
		fmt.Fprintln(w, "no __externrefs declarations found; module left unchanged")
		return
	}

	fmt.Fprintf(w, "reference table: index %d, exported as %q\n", res.TableIndex, res.TableName)
	if !res.Surrogates.HasGuard {
		fmt.Fprintln(w, "no externref.guard import found; guard checking skipped")
	}

	funcIdxs := make([]uint32, 0, len(res.Targets))
	for idx := range res.Targets {
		funcIdxs = append(funcIdxs, idx)
	}
	sort.Slice(funcIdxs, func(i, j int) bool { return funcIdxs[i] < funcIdxs[j] })

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Func", "Kind", "Name", "Old Type", "New Type", "Ref Args", "Ref Return"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, idx := range funcIdxs {
		t := res.Targets[idx]
		kind := "export"
		name := t.Decl.FieldName
		if t.Decl.Kind == DeclImport {
			kind = "import"
			name = t.Decl.ModuleName + "." + t.Decl.FieldName
		}
		table.Append([]string{
			strconv.FormatUint(uint64(idx), 10),
			kind,
			name,
			t.OldType.String(),
			t.NewType.String(),
			refSlotList(t.Decl),
			strconv.FormatBool(t.Decl.ReturnIsRef),
		})
	}
	table.Render()
}

func refSlotList(d Declaration) string {
	if len(d.ArgSlots) == 0 {
		return "-"
	}
	slots := make([]int, 0, len(d.ArgSlots))
	for slot := range d.ArgSlots {
		slots = append(slots, int(slot))
	}
	sort.Ints(slots)
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}
