package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/editor"
	"github.com/meikuraledutech/flow/memory"
)

func main() {
	ctx := context.Background()

	// The memory store stands in for the remote flow API.
	var store flow.Store = memory.New()
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	ed := editor.New(editor.WithLogger(log.Default()))
	if err := ed.Load(ctx, store); err != nil {
		log.Fatalf("load: %v", err)
	}

	// ── Build two flows ───────────────────────────────────────────────
	must(ed.CreateFlow("main.flow.json"))
	must(ed.CreateFlow("greeting.flow.json"))

	must(ed.SetActiveFlow("main.flow.json"))
	entry := ed.CurrentFlow().Nodes[0].ID
	must(ed.SetActiveNode(entry))
	must(ed.UpdateCurrentNode(flow.NodePatch{
		OnEnter: []string{"say #!builtin_text-welcome"},
		Next: []flow.Transition{
			{Condition: "event.text == 'hi'", Node: "greeting.flow.json"},
			{Condition: "true", Node: flow.End},
		},
	}))

	ask, err := ed.CreateNode("main.flow.json", flow.NodePatch{Name: ptr("ask")})
	must(err)
	must(ed.LinkNodes("main.flow.json", entry, 1, "ask"))
	fmt.Println("dirty after editing:", ed.DirtyFlowNames())

	// ── Save: both flows become clean ─────────────────────────────────
	must(ed.Save(ctx, store))
	fmt.Println("dirty after save:", ed.DirtyFlowNames())

	// ── Rename propagates to cross-flow transitions ───────────────────
	must(ed.RenameFlow("greeting.flow.json", "hello.flow.json"))
	fmt.Println("entry transitions:", ed.Flow("main.flow.json").Nodes[0].Next)
	fmt.Println("dirty after rename:", ed.DirtyFlowNames())

	// ── Undo / redo ───────────────────────────────────────────────────
	ed.Undo()
	fmt.Println("flows after undo:", ed.FlowNames(), "dirty:", ed.DirtyFlowNames())
	ed.Redo()
	fmt.Println("flows after redo:", ed.FlowNames())

	// ── Copy / paste ──────────────────────────────────────────────────
	must(ed.SetActiveFlow("main.flow.json"))
	must(ed.SetActiveNode(ask))
	must(ed.CopyNode())
	if _, err := ed.PasteNode(); err != nil {
		log.Fatalf("paste: %v", err)
	}
	fmt.Println("pasted:", ed.CurrentNode().Name)

	printJSON(ed.CurrentFlow())
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func ptr[T any](v T) *T { return &v }

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
