package daemon

func start(Paths, string, []string) (int, error) {
	return 0, ErrUnsupported
}
