package shell

import (
	"fmt"
	"strings"

	"github.com/atinyakov/GophTally/internal/client/syncer"
)

// Command is one parsed input line.
type Command struct {
	Name string
	// Args are the whitespace separated words after the name.
	Args []string
	// Action is set for commands handled by the coordinator.
	Action *syncer.Action
}

// UsageError reports a command called with the wrong arguments.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Usage
}

type actionSpec struct {
	usage string
	// min is the number of required words after the command name.
	min   int
	build func(args []string) syncer.Action
}

// rest joins args from i on, for free text such as names.
func rest(args []string, i int) string {
	if i >= len(args) {
		return ""
	}
	return strings.Join(args[i:], " ")
}

var actions = map[string]actionSpec{
	"add": {"add <name>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionAddCounter, Text: rest(a, 0)}
	}},
	"inc": {"inc <id>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionIncrement, ID: a[0]}
	}},
	"dec": {"dec <id>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionDecrement, ID: a[0]}
	}},
	"reset": {"reset <id>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionReset, ID: a[0]}
	}},
	"delete": {"delete <id>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionDelete, ID: a[0]}
	}},
	"rename": {"rename <id> <name>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionRename, ID: a[0], Text: rest(a, 1)}
	}},
	"describe": {"describe <id> <text>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionDescribe, ID: a[0], Text: rest(a, 1)}
	}},
	"tag": {"tag <id> [label-id...]", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionSetLabels, ID: a[0], Labels: a[1:]}
	}},
	"edit": {"edit <id>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionBeginEdit, ID: a[0]}
	}},
	"save": {"save <id> <value>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionSaveEdit, ID: a[0], Text: rest(a, 1)}
	}},
	"cancel": {"cancel", 0, func([]string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionCancelEdit}
	}},
	"label": {"label <name> [#color]", 1, func(a []string) syncer.Action {
		act := syncer.Action{Kind: syncer.ActionAddLabel, Text: rest(a, 0)}
		if last := a[len(a)-1]; len(a) > 1 && strings.HasPrefix(last, "#") {
			act.Color = last
			act.Text = rest(a[:len(a)-1], 0)
		}
		return act
	}},
	"unlabel": {"unlabel <label-id>", 1, func(a []string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionDeleteLabel, ID: a[0]}
	}},
	"reset-all": {"reset-all", 0, func([]string) syncer.Action {
		return syncer.Action{Kind: syncer.ActionResetAll}
	}},
}

// shellCommands are handled by the shell itself, with their usage.
var shellCommands = map[string]string{
	"help":     "help",
	"list":     "list",
	"status":   "status",
	"device":   "device",
	"export":   "export [dir]",
	"import":   "import <path>",
	"signup":   "signup <email> [display name]",
	"signin":   "signin <email>",
	"provider": "provider <google|github|twitter>",
	"signout":  "signout",
	"forgot":   "forgot <email>",
	"whoami":   "whoami",
	"prefs":    "prefs [theme=<t>] [language=<l>] [view=<v>]",
	"exit":     "exit",
	"quit":     "quit",
}

var shellMinArgs = map[string]int{
	"import":   1,
	"signup":   1,
	"signin":   1,
	"provider": 1,
	"forgot":   1,
}

// Parse splits line into a command. Empty lines yield a zero Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil
	}
	cmd := Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}

	if def, ok := actions[cmd.Name]; ok {
		if len(cmd.Args) < def.min {
			return cmd, &UsageError{Usage: def.usage}
		}
		act := def.build(cmd.Args)
		cmd.Action = &act
		return cmd, nil
	}
	if usage, ok := shellCommands[cmd.Name]; ok {
		if len(cmd.Args) < shellMinArgs[cmd.Name] {
			return cmd, &UsageError{Usage: usage}
		}
		return cmd, nil
	}
	return cmd, fmt.Errorf("unknown command %q, type 'help' for a list of commands", cmd.Name)
}
