//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/inkslate/inkslate/backend-go/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	// Create the canvas API object
	inkslateCanvas := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	inkslateCanvas.Set("load", js.FuncOf(load))
	inkslateCanvas.Set("loadSample", js.FuncOf(loadSample))
	inkslateCanvas.Set("addStroke", js.FuncOf(addStroke))
	inkslateCanvas.Set("addItem", js.FuncOf(addItem))
	inkslateCanvas.Set("erase", js.FuncOf(erase))
	inkslateCanvas.Set("deleteItems", js.FuncOf(deleteItems))
	inkslateCanvas.Set("undo", js.FuncOf(undo))
	inkslateCanvas.Set("redo", js.FuncOf(redo))
	inkslateCanvas.Set("startBatch", js.FuncOf(startBatch))
	inkslateCanvas.Set("endBatch", js.FuncOf(endBatch))
	inkslateCanvas.Set("clear", js.FuncOf(clearCanvas))
	inkslateCanvas.Set("setViewport", js.FuncOf(setViewport))
	inkslateCanvas.Set("tick", js.FuncOf(tick))

	// --- Queries (frontend ← engine) ---
	inkslateCanvas.Set("queryRect", js.FuncOf(queryRect))
	inkslateCanvas.Set("hitTest", js.FuncOf(hitTest))
	inkslateCanvas.Set("hitTestScreen", js.FuncOf(hitTestScreen))
	inkslateCanvas.Set("contentBounds", js.FuncOf(contentBounds))
	inkslateCanvas.Set("snapshot", js.FuncOf(snapshot))
	inkslateCanvas.Set("canUndo", js.FuncOf(canUndo))
	inkslateCanvas.Set("canRedo", js.FuncOf(canRedo))

	// Register on global scope
	js.Global().Set("inkslateCanvas", inkslateCanvas)

	// Signal that WASM is ready
	js.Global().Set("inkslateWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func load(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	if err := eng.LoadDocument(args[0].String()); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSample(this js.Value, args []js.Value) interface{} {
	eng.LoadSampleDocument()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func addStroke(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(`{"error":"missing stroke JSON"}`)
	}
	return js.ValueOf(eng.AddStroke(args[0].String()))
}

func addItem(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(`{"error":"missing item JSON"}`)
	}
	return js.ValueOf(eng.AddItem(args[0].String()))
}

func erase(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(`{"error":"missing eraser JSON"}`)
	}
	return js.ValueOf(eng.Erase(args[0].String()))
}

func deleteItems(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return js.ValueOf(`{"ok":true}`)
	}

	arr := args[0]
	orders := make([]uint64, arr.Length())
	for i := range orders {
		orders[i] = uint64(arr.Index(i).Int())
	}
	return js.ValueOf(eng.DeleteItems(orders))
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

func startBatch(this js.Value, args []js.Value) interface{} {
	eng.StartBatch()
	return nil
}

func endBatch(this js.Value, args []js.Value) interface{} {
	eng.EndBatch()
	return nil
}

func clearCanvas(this js.Value, args []js.Value) interface{} {
	eng.Clear()
	return nil
}

func setViewport(this js.Value, args []js.Value) interface{} {
	if len(args) < 6 {
		return nil
	}
	var m [6]float64
	for i := range m {
		m[i] = args[i].Float()
	}
	eng.SetViewport(m)
	return nil
}

func tick(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Tick())
}

// --- Query Handlers ---

func queryRect(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.QueryRect(args[0].Float(), args[1].Float(), args[2].Float(), args[3].Float()))
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("null")
	}
	tolerance := 4.0
	if len(args) > 2 {
		tolerance = args[2].Float()
	}
	return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float(), tolerance))
}

// hitTestScreen takes a pointer position in screen pixels; the tolerance is
// in pixels too.
func hitTestScreen(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("null")
	}
	tolerance := 4.0
	if len(args) > 2 {
		tolerance = args[2].Float()
	}
	return js.ValueOf(eng.HitTestScreen(args[0].Float(), args[1].Float(), tolerance))
}

func contentBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ContentBounds())
}

func snapshot(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func canUndo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanUndo())
}

func canRedo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CanRedo())
}
