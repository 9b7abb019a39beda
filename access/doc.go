// Package access decides which group a chat-history query may read.
//
// Group chats can only read their own history. Private chats carry no
// group, so only superusers may query from them and they must name the
// group explicitly.
package access
