package bridge

import "strings"

// cmdMetachars are the characters cmd.exe interprets on a command line.
// '"' is included so cmd.exe never enters its quoted state and every caret
// stays active.
const cmdMetachars = `()%!^"<>&|`

// QuoteArgv quotes arg so that the MSVC runtime (CommandLineToArgvW rules)
// splits it back into exactly arg. Arguments without blanks or quotes are
// returned unchanged.
func QuoteArgv(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\v\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')
	backslashes := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			backslashes++
			continue
		case '"':
			b.WriteString(strings.Repeat(`\`, 2*backslashes+1))
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
		}
		backslashes = 0
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat(`\`, 2*backslashes))
	b.WriteByte('"')
	return b.String()
}

// EscapeCmd prefixes every cmd.exe metacharacter in s with '^'.
func EscapeCmd(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(cmdMetachars, r) {
			b.WriteByte('^')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QuoteCmdArg quotes arg for a cmd.exe command line whose program parses
// its arguments with the MSVC rules.
func QuoteCmdArg(arg string) string {
	return EscapeCmd(QuoteArgv(arg))
}

// ComposeCmdLine builds the cmd.exe command that changes to hostDir, sets
// vars inline and runs exe with args.
func ComposeCmdLine(hostDir string, vars []Var, exe string, args []string) string {
	steps := make([]string, 0, len(vars)+2)
	if hostDir != "" {
		// pushd maps a temporary drive letter for UNC paths; cd cannot.
		steps = append(steps, "pushd "+EscapeCmd(`"`+hostDir+`"`))
	}
	for _, v := range vars {
		steps = append(steps, "set "+EscapeCmd(`"`+v.Name+"="+v.Value+`"`))
	}

	call := make([]string, 0, len(args)+1)
	call = append(call, QuoteCmdArg(exe))
	for _, a := range args {
		call = append(call, QuoteCmdArg(a))
	}
	steps = append(steps, strings.Join(call, " "))

	return strings.Join(steps, " && ")
}
