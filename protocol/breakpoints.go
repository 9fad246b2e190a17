package protocol

import "github.com/fansqz/dapclient/jsonvalue"

// ConditionalBreakpoint is the client's desired state for one source
// breakpoint. Identity is positional: (File, Line).
type ConditionalBreakpoint struct {
	FilePath     string
	Line         int
	Condition    string
	HitCondition string
	HasHit       bool
	LogMessage   string
	HasLog       bool
}

// ToSourceBreakpoint converts a desired ConditionalBreakpoint into the
// wire-level SourceBreakpoint DAP expects inside a setBreakpoints
// request.
func (c ConditionalBreakpoint) ToSourceBreakpoint() SourceBreakpoint {
	sb := SourceBreakpoint{Line: c.Line, Condition: c.Condition}
	if c.HasHit {
		sb.HitCondition = c.HitCondition
		sb.HasHitCondition = true
	}
	if c.HasLog {
		sb.LogMessage = c.LogMessage
		sb.HasLogMessage = true
	}
	return sb
}

// SourceBreakpoint is the DAP wire type sent inside setBreakpoints.
// Absent optionals and empty strings are omitted on encode.
type SourceBreakpoint struct {
	Line            int
	Condition       string
	HitCondition    string
	HasHitCondition bool
	LogMessage      string
	HasLogMessage   bool
}

func (b SourceBreakpoint) ToValue() jsonvalue.Value {
	v := jsonvalue.Object(jsonvalue.Pair("line", jsonvalue.Int(b.Line)))
	if b.Condition != "" {
		v.Set("condition", jsonvalue.String(b.Condition))
	}
	if b.HasHitCondition && b.HitCondition != "" {
		v.Set("hitCondition", jsonvalue.String(b.HitCondition))
	}
	if b.HasLogMessage && b.LogMessage != "" {
		v.Set("logMessage", jsonvalue.String(b.LogMessage))
	}
	return v
}

// FunctionBreakpoint is the DAP wire type sent inside
// setFunctionBreakpoints.
type FunctionBreakpoint struct {
	Name         string
	Condition    string
	HitCondition string
}

func (b FunctionBreakpoint) ToValue() jsonvalue.Value {
	v := jsonvalue.Object(jsonvalue.Pair("name", jsonvalue.String(b.Name)))
	if b.Condition != "" {
		v.Set("condition", jsonvalue.String(b.Condition))
	}
	if b.HitCondition != "" {
		v.Set("hitCondition", jsonvalue.String(b.HitCondition))
	}
	return v
}

// InstructionBreakpoint is the DAP wire type sent inside
// setInstructionBreakpoints.
type InstructionBreakpoint struct {
	InstructionReference string
	Offset               int
	HasOffset            bool
	Condition            string
	HitCondition         string
}

func (b InstructionBreakpoint) ToValue() jsonvalue.Value {
	v := jsonvalue.Object(jsonvalue.Pair("instructionReference", jsonvalue.String(b.InstructionReference)))
	if b.HasOffset {
		v.Set("offset", jsonvalue.Int(b.Offset))
	}
	if b.Condition != "" {
		v.Set("condition", jsonvalue.String(b.Condition))
	}
	if b.HitCondition != "" {
		v.Set("hitCondition", jsonvalue.String(b.HitCondition))
	}
	return v
}

// DataBreakpoint is the DAP wire type sent inside setDataBreakpoints.
type DataBreakpoint struct {
	DataID       string
	AccessType   string
	Condition    string
	HitCondition string
}

func (b DataBreakpoint) ToValue() jsonvalue.Value {
	v := jsonvalue.Object(jsonvalue.Pair("dataId", jsonvalue.String(b.DataID)))
	if b.AccessType != "" {
		v.Set("accessType", jsonvalue.String(b.AccessType))
	}
	if b.Condition != "" {
		v.Set("condition", jsonvalue.String(b.Condition))
	}
	if b.HitCondition != "" {
		v.Set("hitCondition", jsonvalue.String(b.HitCondition))
	}
	return v
}

// ExceptionOptions is one entry of a setExceptionBreakpoints request's
// exceptionOptions array.
type ExceptionOptions struct {
	Path      []string
	BreakMode string
}

func (o ExceptionOptions) ToValue() jsonvalue.Value {
	path := make([]jsonvalue.Value, len(o.Path))
	for i, p := range o.Path {
		path[i] = jsonvalue.Object(jsonvalue.Pair("names", jsonvalue.Array(jsonvalue.String(p))))
	}
	return jsonvalue.Object(
		jsonvalue.Pair("path", jsonvalue.Array(path...)),
		jsonvalue.Pair("breakMode", jsonvalue.String(o.BreakMode)),
	)
}

// FilterOptions is one entry of a setExceptionBreakpoints request's
// filterOptions array.
type FilterOptions struct {
	FilterID  string
	Condition string
}

func (o FilterOptions) ToValue() jsonvalue.Value {
	v := jsonvalue.Object(jsonvalue.Pair("filterId", jsonvalue.String(o.FilterID)))
	if o.Condition != "" {
		v.Set("condition", jsonvalue.String(o.Condition))
	}
	return v
}
