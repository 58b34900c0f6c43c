package server

// commandCmd answers COMMAND so that clients probing for it get a reply; it has no effect
func commandCmd(_ *cmdContext) Result {
	return OK()
}

func ping(ctx *cmdContext) Result {
	switch ctx.req.Arity() {
	case 1:
		return Status("PONG")
	case 2:
		return Text(ctx.arg(0))
	}
	return Failure(errWrongNumberOfArguments("PING"))
}

func flushAll(ctx *cmdContext) Result {
	ctx.storage.Clear()
	return OK()
}

func dbSize(ctx *cmdContext) Result {
	return Integer(int64(ctx.storage.Len()))
}
