package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgStartPrompt = `
		Send a photo of a watch or a graded card and I'll check eBay for
		arbitrage opportunities. You can also just type a search query.

		/hunt <query> saves a search and alerts you about new undervalued listings.
		/hunts lists your saved hunts.`
	MsgHelp = `
		*Commands*
		/hunt <query> — save a search, get alerts for new undervalued listings
		/hunts — list saved hunts
		/stophunt — remove a saved hunt

		Send a photo to identify an item and value its eBay listings, or type
		a query like "rolex submariner 126610" to search directly.`
	MsgUnexpectedErr = `Unexpected error: %s`
)

// =============================================================================
// Analysis messages
// =============================================================================

const (
	MsgAnalysisNotAvail  = "Image analysis is not available"
	MsgDownloadFailed    = "Error: could not download the photo"
	MsgIdentifyFailed    = "Couldn't identify the item in the photo. Try a clearer picture or type a search query instead."
	MsgIdentifiedWatch   = "Identified: *%s*\nSearching eBay..."
	MsgIdentifiedCard    = "Identified card: *%s*\nSearching eBay..."
	MsgSearchError       = "eBay search failed: %s"
	MsgSearchNoResults   = `No eBay listings found for "%s".`
	MsgAnalysisHeaderFmt = "*%s* — %d listings analyzed\n🟢 %d undervalued · ⚪ %d fair · 🔴 %d overvalued\n\n"
)

// =============================================================================
// Hunt messages
// =============================================================================

const (
	MsgHuntQueryMissing = "Usage: `/hunt <search query>`\nExample: `/hunt omega speedmaster 3861`"
	MsgHuntCreated      = `Hunt saved: "%s". I'll alert you about new undervalued listings.`
	MsgHuntExists       = `You already have a hunt for "%s".`
	MsgHuntLimit        = "Hunt limit reached (%d). Remove one with /stophunt first."
	MsgHuntNotFound     = "Hunt not found."
	MsgHuntDeleted      = "Hunt removed."
	MsgNoHunts          = "No saved hunts. Create one with `/hunt <query>`."
	MsgHuntsHeader      = "*Saved hunts (%d):*\n"
	MsgHuntItem         = "%d. %s\n"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user ID. Expected a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsers    = "*Allowed users:*\n"
)

// =============================================================================
// Button labels
// =============================================================================

const (
	BtnDeleteHunt = "🗑"
	BtnClose      = "Close"
)
