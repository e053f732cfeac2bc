package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Registration (1000-1999)
	RegInfo                Code = 1000
	RegDuplicateDefinition Code = 1001
	RegUnknownOwner        Code = 1002
	RegInvalidDeclaration  Code = 1003
	RegDuplicateFunction   Code = 1004

	// Type resolution (2000-2999)
	ResInfo                       Code = 2000
	ResUnknownType                Code = 2001
	ResNotATemplate               Code = 2002
	ResTemplateArity              Code = 2003
	ResTemplateValidationRejected Code = 2004
	ResMalformedTypeExpr          Code = 2005

	// Conversions and overloads (3000-3999)
	SemaInfo               Code = 3000
	SemaInvalidConversion  Code = 3001
	SemaNoOverload         Code = 3002
	SemaAmbiguousOverload  Code = 3003
	SemaInvalidOperands    Code = 3004
	SemaQueryMismatch      Code = 3005
	SemaExplicitConversion Code = 3006

	// Fatal invariant violations (4000-4999)
	FatalInfo                  Code = 4000
	FatalCircularInstantiation Code = 4001
	FatalUnknownTemplate       Code = 4002
	FatalCorruptCatalog        Code = 4003

	// Manifest and I/O (5000-5999)
	ManInfo            Code = 5000
	ManLoadError       Code = 5001
	ManUndecodedKey    Code = 5002
	ManInvalidQuery    Code = 5003
	ManUnknownFunction Code = 5004

	// Observability (6000-6999)
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                   "Unknown error",
		RegInfo:                       "Registration information",
		RegDuplicateDefinition:        "Duplicate definition",
		RegUnknownOwner:               "Unknown owner type",
		RegInvalidDeclaration:         "Invalid declaration",
		RegDuplicateFunction:          "Duplicate function signature",
		ResInfo:                       "Type resolution information",
		ResUnknownType:                "Unknown type",
		ResNotATemplate:               "Type is not a template",
		ResTemplateArity:              "Wrong number of template arguments",
		ResTemplateValidationRejected: "Template arguments rejected",
		ResMalformedTypeExpr:          "Malformed type expression",
		SemaInfo:                      "Semantic information",
		SemaInvalidConversion:         "No conversion between types",
		SemaNoOverload:                "No viable overload",
		SemaAmbiguousOverload:         "Ambiguous overload",
		SemaInvalidOperands:           "Invalid operator operands",
		SemaQueryMismatch:             "Query expectation not met",
		SemaExplicitConversion:        "Conversion requires an explicit cast",
		FatalInfo:                     "Invariant information",
		FatalCircularInstantiation:    "Circular template instantiation",
		FatalUnknownTemplate:          "Instance references an unregistered template",
		FatalCorruptCatalog:           "Catalog invariant violated",
		ManInfo:                       "Manifest information",
		ManLoadError:                  "Manifest load error",
		ManUndecodedKey:               "Unknown manifest key",
		ManInvalidQuery:               "Invalid query",
		ManUnknownFunction:            "Unknown function in query",
		ObsInfo:                       "Observability information",
		ObsTimings:                    "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("REG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("FTL%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("MAN%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
