package relay

// User-facing reply templates, rendered through the template engine. The
// texts match what the plugin has always said.
const (
	msgNoPlayersOnline   = "**There are no players online.**"
	msgPlayersHeaderOne  = "**There is 1 player online.**"
	msgPlayersHeaderMany = "**There are $n players online.**"

	msgNotVerified  = "**You are not verified!** Start the verification process by running `/discord verify` in-game."
	msgSynced       = "**Synced verification with game.**"
	msgNoSuchCode   = "**There is no pending verification with that code!**"
	msgVerifiedChat = "**Success!** You've been verified as **$user** in Brickadia."
	msgVerifiedGame = `<color="0a0"><b>Success!</></> You've been verified as <b>$user</> in Discord.`

	msgAlreadyVerified = `<color="a00">You are already verified!</>`
	msgAlreadyPending  = `<color="a00">You have already initiated the verification process! Send <code>$prefixverify $code</> in the game channel.</>`
	msgVerifyHint      = "To verify, send <code>$prefixverify $code</> in the game channel."

	msgNoSubcommand      = `<color="a00">Please specify a command to run.</>`
	msgUnknownSubcommand = `<color="a00">There is no Discord command by the name <code>/discord $command</>.</>`

	msgStoreWiped = "Verification store has been wiped."

	// mirrorFormat is the plain-text console mirror of each relayed chat
	// message.
	mirrorFormat = "<$user> $message"
)
