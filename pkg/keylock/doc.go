/*
Package keylock serializes work on a single key, such as a project id.

Locks are reference counted so idle keys do not accumulate in memory, and
can optionally be backed by a ports.DistributedLocker when several builder
replicas share one store.
*/
package keylock
