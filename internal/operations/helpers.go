package operations

func SerializeResponse[T any, R any](delayed func(T) R, thing T, err error, statusCode int) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{
		StatusCode: statusCode,
		Body:       delayed(thing),
	}, nil
}

func SerializeResponseOK[T any, R any](delayed func(T) R, thing T, err error) (Response, error) {
	return SerializeResponse(delayed, thing, err, 200)
}

func SerializeResponseNoContent(err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: 204}, nil
}
