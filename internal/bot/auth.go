package bot

// adminCommands may only be run by the owner.
var adminCommands = map[string]bool{
	"sync":     true,
	"silent":   true,
	"restart":  true,
	"shutdown": true,
}

// authorized reports whether userID in chatID may run command.
// The owner may run everything; members of the designated chat may run the rest.
func (b *Bot) authorized(command string, userID, chatID int64) bool {
	if b.ownerID != 0 && userID == b.ownerID {
		return true
	}
	if adminCommands[command] {
		return false
	}
	return b.chatID != 0 && chatID == b.chatID
}
