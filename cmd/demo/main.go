// Command demo wires up a small component tree on top of pkg/circuit and
// runs it until SIGINT/SIGTERM, printing a line when the app starts and the
// payload of the GreetSuccess event once the greeting has been handled.
package main

import (
	"fmt"
	"log"

	"github.com/Xtinci0n/circuits/pkg/circuit"
)

func main() {
	root := circuit.NewManager("app")

	greeter := circuit.NewComponent("greeter", "service")
	if err := root.Register(greeter); err != nil {
		log.Fatal(err)
	}

	root.AddHandler(circuit.HandlerDescriptor{
		Names: []string{"Started"},
		Func: func(event circuit.Event) (interface{}, error) {
			fmt.Println("app started")
			return nil, nil
		},
	})

	greeter.AddHandler(circuit.HandlerDescriptor{
		Names: []string{"Greet"},
		Func: func(event circuit.Event) (interface{}, error) {
			name, _ := event.Args()[0].(string)
			return fmt.Sprintf("hello, %s", name), nil
		},
	})

	root.AddHandler(circuit.HandlerDescriptor{
		Names: []string{"GreetSuccess"},
		Func: func(event circuit.Event) (interface{}, error) {
			fmt.Println(event.Args())
			return nil, nil
		},
	})

	var tickID string
	tickID = root.AddTick(func() error {
		greet := circuit.NewEvent("Greet", "world").WithLifecycle(true, true, false)
		if _, err := greeter.Fire(greet); err != nil {
			return err
		}
		root.RemoveTick(tickID)
		return nil
	})

	if err := root.Run(); err != nil {
		log.Fatal(err)
	}
}
