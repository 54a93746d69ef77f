// Package notify fans out change events of the table to the subscribers of a key.
//
// The Hub is handed to the table as its db.INotifier. Entries only store the
// db.SubscriberID of their subscribers, the Hub resolves the handle to an ISink
// when a key changes. Unknown handles are skipped, so a subscriber that was torn
// down concurrently never causes a failure of the writing batch.
//
// Besides the routing the Hub keeps the number of live subscriptions per
// subscriber, which is used to enforce the per session subscription limit.
package notify
