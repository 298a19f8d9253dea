// package bot is the Telegram front end.
//
// A [Bot] owns the per-session state: the pending choice buttons, the silent
// flag and the owner notifier. Downloads are started through a
// [tasks.Manager] so every handler returns quickly and /stopdl stays
// responsive while work runs on task goroutines.
//
// Telegram specifics live behind the [Messenger] interface and the
// [Telegram] adapter; handlers only see chat ids, message ids and text.
package bot
