package completion

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/alexispurslane/stylable-lsp/classify"
	"github.com/alexispurslane/stylable-lsp/stylesheet"
)

// Signature describes the call the cursor is inside: value(varName) in ordinary
// declaration values, or a mixin call inside -st-mixin.
func Signature(req *Request) (*protocol.SignatureHelp, bool) {
	decl, ok := req.Context.(classify.DeclarationValue)
	if !ok || decl.Rule == nil || decl.Rule.Kind != stylesheet.StyleRule {
		return nil, false
	}

	if decl.Property == stylesheet.DirectiveMixin {
		return mixinSignature(req, decl.Value)
	}
	if strings.HasPrefix(decl.Property, "-st-") {
		return nil, false
	}
	i := strings.LastIndex(decl.Value, valueFunc)
	if i < 0 || strings.Contains(decl.Value[i:], ")") {
		return nil, false
	}
	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label:         "value(varName)",
			Documentation: "Returns the value of a variable declared in :vars or imported with -st-named",
			Parameters:    []protocol.ParameterInformation{{Label: "varName"}},
		}},
	}, true
}

// mixinSignature reports the variables of the mixed-in stylesheet as the
// parameters of the call being typed.
func mixinSignature(req *Request, value string) (*protocol.SignatureHelp, bool) {
	open := strings.LastIndexByte(value, '(')
	if open < 0 || strings.Contains(value[open:], ")") {
		return nil, false
	}
	head := value[:open]
	if comma := strings.LastIndexByte(head, ','); comma >= 0 {
		head = head[comma+1:]
	}
	name := strings.TrimSpace(head)
	if name == "" {
		return nil, false
	}
	args := value[open+1:]

	var params []protocol.ParameterInformation
	var names []string
	if sym, ok := req.Resolver.Class(req.URI, name); ok && !sym.Unresolved {
		if sheet, ok := req.Resolver.Source().Sheet(sym.File); ok {
			for _, v := range sheet.Vars {
				names = append(names, v.Name)
				params = append(params, protocol.ParameterInformation{Label: v.Name, Documentation: v.Value})
			}
		}
	}

	label := name + "(...)"
	if names != nil {
		label = name + "(" + strings.Join(names, ", ") + ")"
	}
	active := uint32(strings.Count(args, ","))
	return &protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label:           label,
			Parameters:      params,
			ActiveParameter: active,
		}},
		ActiveParameter: active,
	}, true
}
