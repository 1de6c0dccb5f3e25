package diag

import (
	"fmt"
)

// Code is a stable diagnostic code in the FTX namespace. The numeric
// value is the published code: Code(201).ID() == "FTX0201". Consumers
// must ignore codes they do not recognize.
type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Синтаксис исходника (01xx)
	SynParseRecovery        Code = 100 // parse recovery
	SynUnmatchedEnvironment Code = 101 // \begin{x}...\end{y}
	SynUnmatchedGroup       Code = 102 // unbalanced { } or [ ]

	// Метки (02xx)
	RefDuplicateLabel Code = 200
	RefUnresolvedRef  Code = 201

	// Цитаты (03xx)
	CiteUnresolved    Code = 300
	CiteBibParseError Code = 301

	// Граф включений (04xx)
	InclCycle         Code = 400
	InclResolveFailed Code = 401

	// Лог (10xx)
	LogAmbiguity         Code = 1000
	LogUnmatchedFileExit Code = 1001
	LogSuspiciousEnter   Code = 1002

	// Диагностика движка (20xx)
	TexError      Code = 2000
	LatexWarning  Code = 2001
	OverfullHbox  Code = 2002
	UnderfullHbox Code = 2003

	// Тулчейн (30xx)
	EngineInvocationFailed Code = 3000
	LogNotFound            Code = 3001
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown diagnostic",
	SynParseRecovery:        "Parse recovery",
	SynUnmatchedEnvironment: "Unmatched environment",
	SynUnmatchedGroup:       "Unmatched group",
	RefDuplicateLabel:       "Duplicate label definition",
	RefUnresolvedRef:        "Unresolved label reference",
	CiteUnresolved:          "Unresolved citation reference",
	CiteBibParseError:       "Bibliography parse error",
	InclCycle:               "Include cycle detected",
	InclResolveFailed:       "Include resolution failed",
	LogAmbiguity:            "Log ambiguity",
	LogUnmatchedFileExit:    "Unmatched file exit",
	LogSuspiciousEnter:      "Suspicious file enter",
	TexError:                "TeX error",
	LatexWarning:            "LaTeX warning",
	OverfullHbox:            "Overfull hbox",
	UnderfullHbox:           "Underfull hbox",
	EngineInvocationFailed:  "Engine invocation failed",
	LogNotFound:             "Log not found",
}

// ID renders the published namespaced code.
func (c Code) ID() string {
	return fmt.Sprintf("FTX%04d", uint16(c))
}

// Title returns a short human description of the code.
func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
