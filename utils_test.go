package crucible_test

import (
	"context"
	"fmt"
)

type NameService interface {
	Name() string
}

type NameProvider string

func (s NameProvider) Name() string {
	return string(s)
}

func nameProviderConstructor() (NameProvider, error) {
	return NameProvider("Bob"), nil
}

func nameServiceConstructor() (NameService, error) {
	return NameProvider("Bob"), nil
}

func namedServiceConstructor(name string) func() (NameService, error) {
	return func() (NameService, error) {
		return NameProvider(name), nil
	}
}

type Hero struct {
	name string
}

func (h *Hero) Announce() string {
	return fmt.Sprintf("%s is our hero!", h.name)
}

func heroConstructor(nameService NameService) (*Hero, error) {
	return &Hero{nameService.Name()}, nil
}

type Impostor struct {
	hero *Hero
	name string
}

func (i *Impostor) Name() string {
	return i.name
}

func impostorConstructor(nameService NameService, hero *Hero) (*Impostor, error) {
	return &Impostor{name: nameService.Name(), hero: hero}, nil
}

func disguisedImpostorConstructor(impostor *Impostor) (*Hero, error) {
	return &Hero{name: impostor.Name()}, nil
}

type RequestTracker struct {
	ctx context.Context
	id  int
}

func requestTrackerConstructor(counter *int) func(ctx context.Context) (*RequestTracker, error) {
	return func(ctx context.Context) (*RequestTracker, error) {
		*counter++
		return &RequestTracker{ctx: ctx, id: *counter}, nil
	}
}

type Greeter struct {
	Names NameService

	greeting string
}

func (g Greeter) Greet() string {
	return "Hello " + g.Names.Name()
}

type Greetings struct {
	Greeter Greeter
}

type ServerConfig struct {
	Host    string
	Port    int
	Verbose bool
}

func serverConfigConstructor(host string, port int) (*ServerConfig, error) {
	return &ServerConfig{Host: host, Port: port}, nil
}

func nameServiceConstructorWithCleanup(cleanup func()) func() (NameService, func(), error) {
	return func() (NameService, func(), error) {
		return NameProvider("Bob"), cleanup, nil
	}
}

func heroConstructorWithCleanup(cleanup func()) func(nameService NameService) (*Hero, func(), error) {
	return func(nameService NameService) (*Hero, func(), error) {
		return &Hero{nameService.Name()}, cleanup, nil
	}
}

func scaredHeroConstructor(nameService NameService) (*Hero, error) {
	panic(fmt.Errorf("scared"))
}
