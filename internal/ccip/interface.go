package ccip

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Interface is an immutable set of contract functions resolved from an ABI source.
type Interface struct {
	functions map[string]abi.Method // keyed by canonical signature
	byName    map[string][]string
}

var (
	dataLocation = regexp.MustCompile(`\s+(memory|calldata|storage|indexed|payable)\b`)
	paramName    = regexp.MustCompile(`([^\s,(])\s+[A-Za-z_$][A-Za-z0-9_$]*\s*([,)])`)
	tuplePrefix  = regexp.MustCompile(`\btuple\s*\(`)
	intAlias     = regexp.MustCompile(`\b(u?int)\b`)
)

// ParseInterface normalizes an ABI source into an Interface. Accepted sources are a JSON ABI
// string, a human-readable fragment or a slice of them, a go-ethereum abi.ABI, or an Interface.
func ParseInterface(source any) (*Interface, error) {
	switch src := source.(type) {
	case *Interface:
		if src == nil {
			return nil, errors.New("nil interface")
		}
		return src, nil
	case abi.ABI:
		return fromABI(&src), nil
	case *abi.ABI:
		if src == nil {
			return nil, errors.New("nil abi")
		}
		return fromABI(src), nil
	case string:
		trimmed := strings.TrimSpace(src)
		if strings.HasPrefix(trimmed, "[") {
			parsed, err := abi.JSON(strings.NewReader(trimmed))
			if err != nil {
				return nil, fmt.Errorf("failed to parse json abi: %w", err)
			}
			return fromABI(&parsed), nil
		}
		return parseHumanReadable([]string{src})
	case []string:
		return parseHumanReadable(src)
	default:
		return nil, fmt.Errorf("unsupported abi source %T", source)
	}
}

// MustParseInterface is like ParseInterface but panics on error.
func MustParseInterface(source any) *Interface {
	iface, err := ParseInterface(source)
	if err != nil {
		panic(err)
	}
	return iface
}

// Function resolves a bare function name or a canonical signature such as "resolve(bytes,bytes)".
func (i *Interface) Function(nameOrSignature string) (abi.Method, error) {
	key := strings.ReplaceAll(nameOrSignature, " ", "")
	if strings.Contains(key, "(") {
		if method, ok := i.functions[key]; ok {
			return method, nil
		}
		return abi.Method{}, fmt.Errorf("no function with signature %s", key)
	}
	signatures := i.byName[key]
	switch len(signatures) {
	case 0:
		return abi.Method{}, fmt.Errorf("no function named %s", key)
	case 1:
		return i.functions[signatures[0]], nil
	default:
		return abi.Method{}, fmt.Errorf("ambiguous function name %s: %s", key, strings.Join(signatures, ", "))
	}
}

// Functions returns every function of the interface.
func (i *Interface) Functions() []abi.Method {
	methods := make([]abi.Method, 0, len(i.functions))
	for _, method := range i.functions {
		methods = append(methods, method)
	}
	return methods
}

func newInterface() *Interface {
	return &Interface{functions: make(map[string]abi.Method), byName: make(map[string][]string)}
}

func (i *Interface) add(method abi.Method) {
	if _, ok := i.functions[method.Sig]; ok {
		return
	}
	i.functions[method.Sig] = method
	i.byName[method.RawName] = append(i.byName[method.RawName], method.Sig)
}

func fromABI(parsed *abi.ABI) *Interface {
	iface := newInterface()
	for _, method := range parsed.Methods {
		iface.add(method)
	}
	return iface
}

func parseHumanReadable(fragments []string) (*Interface, error) {
	iface := newInterface()
	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if keyword, _, _ := strings.Cut(fragment, " "); isNonFunctionKeyword(keyword) {
			continue
		}
		method, err := parseFunction(fragment)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %q: %w", fragment, err)
		}
		iface.add(method)
	}
	return iface, nil
}

func isNonFunctionKeyword(keyword string) bool {
	switch keyword {
	case "event", "error", "constructor", "fallback", "receive":
		return true
	}
	return false
}

// parseFunction parses "function name(type a, ...) [modifiers] [returns (type, ...)]".
func parseFunction(fragment string) (abi.Method, error) {
	fragment = strings.TrimSpace(strings.TrimPrefix(fragment, "function "))
	open := strings.Index(fragment, "(")
	if open <= 0 {
		return abi.Method{}, errors.New("missing parameter list")
	}
	name := strings.TrimSpace(fragment[:open])
	closing, err := matchingParen(fragment, open)
	if err != nil {
		return abi.Method{}, err
	}
	inputs, err := parseArguments(fragment[open : closing+1])
	if err != nil {
		return abi.Method{}, err
	}

	rest := fragment[closing+1:]
	var outputs abi.Arguments
	mutability := "nonpayable"
	if idx := strings.Index(rest, "returns"); idx >= 0 {
		modifiers := rest[:idx]
		mutability = stateMutability(modifiers)
		returns := strings.TrimSpace(rest[idx+len("returns"):])
		if !strings.HasPrefix(returns, "(") {
			return abi.Method{}, errors.New("malformed returns clause")
		}
		end, err := matchingParen(returns, 0)
		if err != nil {
			return abi.Method{}, err
		}
		if outputs, err = parseArguments(returns[:end+1]); err != nil {
			return abi.Method{}, err
		}
	} else {
		mutability = stateMutability(rest)
	}
	isConst := mutability == "view" || mutability == "pure"
	return abi.NewMethod(name, name, abi.Function, mutability, isConst, mutability == "payable", inputs, outputs), nil
}

func stateMutability(modifiers string) string {
	for _, word := range strings.Fields(modifiers) {
		switch word {
		case "view", "pure", "payable", "nonpayable":
			return word
		}
	}
	return "nonpayable"
}

func matchingParen(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.New("unbalanced parentheses")
}

// parseArguments turns a parenthesized parameter list into abi.Arguments.
func parseArguments(list string) (abi.Arguments, error) {
	normalized := tuplePrefix.ReplaceAllString(list, "(")
	normalized = dataLocation.ReplaceAllString(normalized, "")
	normalized = paramName.ReplaceAllString(normalized, "$1$2")
	normalized = intAlias.ReplaceAllString(normalized, "${1}256")
	normalized = strings.Join(strings.Fields(normalized), "")
	if normalized == "()" {
		return abi.Arguments{}, nil
	}
	selector, err := abi.ParseSelector("f" + normalized)
	if err != nil {
		return nil, err
	}
	args := make(abi.Arguments, 0, len(selector.Inputs))
	for _, input := range selector.Inputs {
		ty, err := abi.NewType(input.Type, input.InternalType, input.Components)
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{Name: input.Name, Type: ty})
	}
	return args, nil
}
