package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Completer --dir ../domain/tutor --output domain/tutor --outpkg tutormock --filename completer_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ProfileRepository --dir ../domain/tutor --output domain/tutor --outpkg tutormock --filename profile_repository_mock.go
