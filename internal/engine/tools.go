package engine

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const (
	FunctionPath   = "path"
	FunctionCode   = "code"
	FunctionProc   = "proc"
	FunctionAnswer = "none"
)

const queryParamDescription = "The query with which to search. This should consist of keywords that might match something in the codebase, e.g. 'react functional components', 'contextmanager', 'bearer token'"

var (
	pathFunction = FunctionSchema{
		Name:        FunctionPath,
		Description: "Search the pathnames in a codebase. Results may not be exact matches, but will be similar by some edit-distance. Use when you want to find a specific file or directory.",
		Parameters: `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "` + queryParamDescription + `"}
  },
  "required": ["query"]
}`,
	}

	codeFunction = FunctionSchema{
		Name:        FunctionCode,
		Description: "Search the contents of files in a codebase. Results will not necessarily match search terms exactly, but should be related.",
		Parameters: `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "` + queryParamDescription + `"}
  },
  "required": ["query"]
}`,
	}

	procFunction = FunctionSchema{
		Name:        FunctionProc,
		Description: "Read one or more files and extract the line ranges which are relevant to the search terms. Do not proc more than 10 files at a time.",
		Parameters: `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "The query with which to search the files."},
    "paths": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0},
      "description": "The indices of the paths to search. paths.len() <= 10"
    }
  },
  "required": ["query", "paths"]
}`,
	}

	answerFunction = FunctionSchema{
		Name:        FunctionAnswer,
		Description: "You have enough information to answer the user's query. This is the final step, and signals that you have enough information to respond to the user's query.",
		Parameters: `{
  "type": "object",
  "properties": {
    "paths": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0},
      "description": "Indices of the paths to answer with respect to. Can be empty if the answer is not related to a specific path."
    }
  },
  "required": ["paths"]
}`,
	}
)

// Functions returns the catalog offered to the model. proc is only
// offered once the session has at least one path to process.
func Functions(withProc bool) []FunctionSchema {
	fns := []FunctionSchema{codeFunction, pathFunction, answerFunction}
	if withProc {
		fns = append(fns, procFunction)
	}
	return fns
}

func lookupFunction(name string) (FunctionSchema, bool) {
	for _, fn := range []FunctionSchema{pathFunction, codeFunction, procFunction, answerFunction} {
		if fn.Name == name {
			return fn, true
		}
	}
	return FunctionSchema{}, false
}

// ValidateArgs validates decoded arguments against the function's JSON schema.
func (f FunctionSchema) ValidateArgs(args any) error {
	schemaLoader := gojsonschema.NewStringLoader(f.Parameters)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ArgsValidationError{
			Function: f.Name,
			Errors:   errorMsgs,
		}
	}

	return nil
}
