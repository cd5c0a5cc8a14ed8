package service

// keys derives every persisted key and channel name for one configured
// prefix. The full scheme:
//
//	<prefix>:<room>            room record
//	<prefix>:<room>:members    membership list
//	<prefix>:<room>:messages   bounded message log
//	<prefix>:<room>:chan       broadcast channel
//	<prefix>:<room>:leavechan  leave-notification channel
//	<prefix>:agent:<id>:name   agent display name
type keys struct {
	prefix string
}

func (k keys) room(name string) string         { return k.prefix + ":" + name }
func (k keys) members(name string) string      { return k.prefix + ":" + name + ":members" }
func (k keys) messages(name string) string     { return k.prefix + ":" + name + ":messages" }
func (k keys) channel(name string) string      { return k.prefix + ":" + name + ":chan" }
func (k keys) leaveChannel(name string) string { return k.prefix + ":" + name + ":leavechan" }
func (k keys) agentName(id string) string      { return k.prefix + ":agent:" + id + ":name" }
