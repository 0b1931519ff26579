package main

// CLIResult is the top-level JSON envelope for every query command.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly (FileId, Symbol) pair.
type CLISymbol struct {
	File      int32  `json:"file"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Def       int32  `json:"def"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
}

// CLICompletionItem is a JSON-friendly completion candidate.
type CLICompletionItem struct {
	Label string `json:"label"`
	Kind  string `json:"kind,omitempty"`
}

// CLIResolution is a JSON-friendly approximately_resolve_symbol result.
type CLIResolution struct {
	Defs     []int32 `json:"defs"`
	ViaIndex bool    `json:"via_index"`
}

// CLIRange is a JSON-friendly FileRange.
type CLIRange struct {
	File  int32 `json:"file"`
	Start int   `json:"start"`
	End   int   `json:"end"`
}

// CLIRefResult is a JSON-friendly find_all_refs result.
type CLIRefResult struct {
	Binding CLIRange   `json:"binding"`
	Refs    []CLIRange `json:"refs"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	Severity string        `json:"severity"`
	Range    CLIRange      `json:"range"`
	Message  string        `json:"message"`
	Fix      *CLISourceFix `json:"fix,omitempty"`
}

// CLISourceFix is a JSON-friendly diagnostic fix / assist.
type CLISourceFix struct {
	File  int32         `json:"file"`
	Label string        `json:"label"`
	Edits []CLITextEdit `json:"edits,omitempty"`
	Diff  string        `json:"diff,omitempty"`
}

// CLITextEdit is a JSON-friendly text edit.
type CLITextEdit struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	NewText string `json:"new_text"`
}

// CLISignature is a JSON-friendly resolve_callable result.
type CLISignature struct {
	Def              int32 `json:"def"`
	CurrentParameter int   `json:"current_parameter"`
}

// CLITypeOf is a JSON-friendly type_of result.
type CLITypeOf struct {
	Type    string `json:"type"`
	Unknown bool   `json:"unknown"`
}
