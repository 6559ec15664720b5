package dispatcher

import "github.com/vivekkdagar/redix/internal/resp"

// toErrorValue renders a keyspace error (already phrased as a full RESP
// error message, e.g. ErrWrongType) as a reply frame.
func toErrorValue(err error) resp.Value {
	return resp.NewError(err.Error())
}

// Error builders matching the taxonomy in spec.md §7. Each surfaces as a
// RESP error frame; none of them ever partially mutate the keyspace, since
// they are all raised before a handler performs any write.

func errUnknownCommand(verb string) resp.Value {
	return resp.Errorf("ERR unknown command '%s'", verb)
}

func errArity(verb string) resp.Value {
	return resp.Errorf("ERR wrong number of arguments for '%s'", verb)
}

func errSyntax() resp.Value {
	return resp.NewError("ERR syntax error")
}

var (
	errExecWithoutMulti    = resp.NewError("ERR EXEC without MULTI")
	errDiscardWithoutMulti = resp.NewError("ERR DISCARD without MULTI")
	errNestedMulti         = resp.NewError("ERR MULTI calls can not be nested")
	errExecAbort           = resp.NewError("EXECABORT Transaction discarded because of previous errors.")
	errSubscribedMode      = resp.NewError("ERR only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT allowed in this context")
)
