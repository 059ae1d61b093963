package api

// API limits and constants.
const (
	// DefaultMaxBodyBytes is the default request body limit (10 MB).
	DefaultMaxBodyBytes = 10 << 20
)

// Headers used for optimistic concurrency.
const (
	HeaderIfMatch = "If-Match"
	HeaderETag    = "ETag"
)

// Response messages.
const (
	msgBoardCreated = "Board created successfully"
	msgBoardUpdated = "Board updated successfully"
	msgBoardDeleted = "Board deleted successfully"
	msgBoardStarred = "Board star toggled successfully"
	msgMemberAdded  = "Member added successfully"
	msgMemberGone   = "Member removed successfully"
	msgListAdded    = "List added successfully"
	msgListUpdated  = "List updated successfully"
	msgListDeleted  = "List deleted successfully"
	msgListMoved    = "List moved successfully"
	msgCardAdded    = "Card added successfully"
	msgCardUpdated  = "Card updated successfully"
	msgCardDeleted  = "Card deleted successfully"
	msgCardMoved    = "Card moved successfully"
	msgLabelAdded   = "Label added successfully"
	msgLabelRemoved = "Label removed successfully"
	msgRegistered   = "User registered successfully"
	msgLoggedIn     = "Login successful"
	msgLoggedOut    = "Logout successful"
	msgRateLimited  = "Too many requests from this IP, please try again later."
)
