package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// UI (TUI) - Panel titles
	"panel.todos":     "Todos",
	"panel.assistant": "Assistant",
	"panel.logs":      "Logs",

	// UI - Auth screens
	"screen.login":    "Sign in",
	"screen.register": "Create account",

	"field.email":            "Email",
	"field.password":         "Password",
	"field.password_confirm": "Confirm password",
	"field.first_name":       "First name",
	"field.last_name":        "Last name",
	"field.title":            "Title",
	"field.description":      "Description (optional)",

	// UI - Key hints
	"hint.login":     "enter submit · tab next field · ctrl+r create account · ctrl+c quit",
	"hint.register":  "enter submit · tab next field · ctrl+r back to sign in · ctrl+c quit",
	"hint.todos":     "n new · space toggle · d delete · r reload · tab switch · ctrl+l sign out · ctrl+c quit",
	"hint.form":      "enter save · tab next field · esc cancel",
	"hint.assistant": "enter send · esc clear · tab switch · ctrl+l sign out",
	"hint.logs":      "tab switch · ctrl+c quit",

	// UI - Status bar
	"status.loading":       "Loading todos...",
	"status.submitting":    "Saving...",
	"status.composing":     "Assistant is typing...",
	"status.signing_in":    "Signing in...",
	"status.signed_in":     "Signed in as %s",
	"status.signed_out":    "Signed out",
	"status.expired":       "Your session has expired. Please sign in again.",
	"status.registered":    "Account created. Please sign in.",
	"status.registered_in": "Account created. Signed in as %s",
	"status.api":           "API %s",

	// UI - Todos
	"todo.confirm":     "%s (y/n)",
	"todo.done_mark":   "[x]",
	"todo.open_mark":   "[ ]",
	"todo.count":       "%d todos · %d done",
	"todo.new":         "New todo",
	"todo.not_ready":   "Todos are not loaded yet, press r to retry",
	"todo.retry":       "press r to retry",
	"todo.deleted":     "Deleted %q",
	"todo.created":     "Added %q",
	"todo.toggled_on":  "Completed %q",
	"todo.toggled_off": "Reopened %q",

	// UI - Assistant
	"assistant.welcome":     "Hi! I'm your AI Todo Assistant.",
	"assistant.try":         "Try one of these (alt+1..4):",
	"assistant.warning":     "Assistant not configured: %s",
	"assistant.you":         "You",
	"assistant.bot":         "Assistant",
	"assistant.placeholder": "Ask the assistant to add, find or complete todos...",
	"action.success":        "✓ %s",
	"action.failed":         "✗ %s",

	// REPL
	"repl.welcome":         "todo %s · type /help for commands",
	"repl.login_required":  "Please /login first.",
	"repl.unknown":         "Unknown command: %s (try /help)",
	"repl.usage":           "Usage: %s",
	"repl.bye":             "Bye.",
	"repl.not_signed_in":   "Not signed in.",
	"repl.whoami":          "%s <%s>",
	"repl.token_expires":   "token expires %s",
	"repl.token_opaque":    "token is not a JWT",
	"repl.events":          "Recent sign-in activity:",
	"repl.cancelled":       "Cancelled.",
	"repl.no_match":        "No todo matches %q",
	"repl.server_saved":    "API base URL saved to %s (restart to apply)",
	"repl.chat_mode_on":    "Chat mode on. Plain text goes to the assistant; /chat off to leave.",
	"repl.chat_mode_off":   "Chat mode off.",
	"repl.password_prompt": "Password: ",
	"repl.confirm_prompt":  "Confirm password: ",
	"repl.help": `Commands:
  /login <email>              sign in (password is prompted)
  /register <email> [first last]  create an account
  /logout                     sign out
  /whoami                     show the signed-in user
  /list                       list todos
  /add <title> [| description]  create a todo
  /show <n|id>                show one todo
  /edit <n|id> <title> [| description]  update a todo
  /done <n|id>                toggle completion
  /rm <n|id>                  delete a todo (asks first)
  /chat [text|on|off]         talk to the assistant
  /status                     assistant availability
  /server <url>               save the API base URL
  /help                       this help
  /exit                       quit`,
}
